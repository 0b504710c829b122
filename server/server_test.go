package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/bogo-finds/app"
	"github.com/jrsteele09/bogo-finds/auth"
	"github.com/jrsteele09/bogo-finds/deals"
	"github.com/jrsteele09/bogo-finds/internal/config"
	"github.com/jrsteele09/bogo-finds/internal/metrics"
	"github.com/jrsteele09/bogo-finds/server"
	"github.com/jrsteele09/bogo-finds/token"
	"github.com/jrsteele09/bogo-finds/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "Password123"
	testOrigin   = "http://localhost:5173"
)

var fixedNow = time.Date(2024, time.November, 27, 18, 30, 0, 0, time.UTC)

type testConfig struct {
	config.Config
}

func (testConfig) GetEnv() string        { return "TEST" }
func (testConfig) GetTokenSecret() string { return "test-secret" }
func (testConfig) GetAllowedOrigins() config.AllowedOrigins {
	return config.AllowedOrigins{testOrigin: struct{}{}}
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendConfirmation(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) SendRecovery(_ context.Context, email, code string) error {
	return m.SendConfirmation(context.Background(), email, code)
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type serverFixture struct {
	mailer *captureMailer
	app    *app.App
	server *server.Server
}

func setupServer(t *testing.T, options ...auth.ServiceOption) *serverFixture {
	t.Helper()

	cfg := testConfig{Config: config.New()}
	tm, err := token.New(cfg)
	require.NoError(t, err)

	userRepo := users.NewInMemoryUserRepo()
	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, userRepo.Upsert(&users.User{
		Email:        testEmail,
		PasswordHash: hash,
		Metadata:     map[string]any{"name": "Ana"},
		Confirmed:    true,
	}))

	f := &serverFixture{mailer: &captureMailer{codes: map[string]string{}}}
	options = append([]auth.ServiceOption{auth.WithMailer(f.mailer)}, options...)
	authService, err := auth.NewService(auth.Repos{Users: userRepo, Sessions: auth.NewInMemorySessionRepo()}, tm, options...)
	require.NoError(t, err)

	engine, err := deals.NewEngine(deals.DefaultCatalog(), deals.WithNowTime(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	f.app, err = app.New(authService, engine, app.WithMetrics(metrics.NewCollector(registry)))
	require.NoError(t, err)
	require.NoError(t, f.app.Start(context.Background()))
	t.Cleanup(f.app.Close)

	f.server, err = server.New(cfg, f.app, server.WithAuthService(authService), server.WithGatherer(registry))
	require.NoError(t, err)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) signIn(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAuthSignIn, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := server.New(nil, nil)
	require.Error(t, err)
	_, err = server.New(testConfig{Config: config.New()}, nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, server.RouteHealth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode(t, rec)["status"])
}

func TestSession(t *testing.T) {
	t.Run("signed out shows the auth screen", func(t *testing.T) {
		f := setupServer(t)
		rec := f.do(t, http.MethodGet, server.RouteSession, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

		body := decode(t, rec)
		require.Equal(t, string(app.ScreenAuth), body["screen"])
		require.Nil(t, body["user"])
		require.Nil(t, body["profile"])
		require.Equal(t, string(app.ModeWelcome), body["form"].(map[string]any)["mode"])
	})

	t.Run("signed in shows the deals screen", func(t *testing.T) {
		f := setupServer(t)
		f.signIn(t)

		body := decode(t, f.do(t, http.MethodGet, server.RouteSession, nil))
		require.Equal(t, string(app.ScreenDeals), body["screen"])
		require.Equal(t, "Ana", body["displayName"])
		require.Equal(t, "A", body["initial"])
		require.Equal(t, testEmail, body["user"].(map[string]any)["email"])
	})
}

func TestSignIn(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		f := setupServer(t)
		rec := f.do(t, http.MethodPost, server.RouteAuthSignIn, map[string]string{"email": testEmail, "password": "Wrong12345"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decode(t, rec)
		require.Equal(t, "invalid_credentials", body["error"])
		require.Equal(t, string(app.ScreenAuth), body["screen"])
		form := body["form"].(map[string]any)
		require.Equal(t, string(app.ModeLogin), form["mode"])
		require.Equal(t, "Invalid email or password", form["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		f := setupServer(t)
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthSignIn, strings.NewReader("{"))
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_request", decode(t, rec)["error"])
	})

	t.Run("success", func(t *testing.T) {
		f := setupServer(t)
		rec := f.do(t, http.MethodPost, server.RouteAuthSignIn, map[string]string{"email": testEmail, "password": testPassword})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		require.Equal(t, string(app.ScreenDeals), body["screen"])
		require.NotContains(t, body, "error")
	})
}

func TestSignUpWithConfirmation(t *testing.T) {
	f := setupServer(t, auth.WithRequireEmailConfirmation(true))

	rec := f.do(t, http.MethodPost, server.RouteAuthSignUp, map[string]string{
		"name":     "Bea",
		"email":    "bea@example.com",
		"password": "Password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, string(app.ScreenAuth), body["screen"])
	require.Equal(t, app.NoticeConfirmEmail, body["form"].(map[string]any)["notice"])

	code := f.mailer.code("bea@example.com")
	require.NotEmpty(t, code)

	rec = f.do(t, http.MethodPost, server.RouteAuthConfirm, map[string]string{"code": "not-a-code"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, server.RouteAuthConfirm, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	require.Equal(t, string(app.ScreenDeals), body["screen"])
	require.Equal(t, "Bea", body["displayName"])
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodPost, server.RouteAuthSignUp, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "user_already_registered", decode(t, rec)["error"])
}

func TestResetAndRecover(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodPost, server.RouteAuthReset, map[string]string{"email": testEmail})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, app.NoticeResetSent, decode(t, rec)["form"].(map[string]any)["notice"])

	code := f.mailer.code(testEmail)
	require.NotEmpty(t, code)

	rec = f.do(t, http.MethodPost, server.RouteAuthRecover, map[string]string{"code": code, "password": "weak"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, server.RouteAuthRecover, map[string]string{"code": code, "password": "NewPassword456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, string(app.ScreenDeals), decode(t, rec)["screen"])

	f.do(t, http.MethodPost, server.RouteAuthSignOut, nil)
	rec = f.do(t, http.MethodPost, server.RouteAuthSignIn, map[string]string{"email": testEmail, "password": "NewPassword456"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSignOut(t *testing.T) {
	f := setupServer(t)
	f.signIn(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/deals/1/claim", nil).Code)

	rec := f.do(t, http.MethodPost, server.RouteAuthSignOut, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, string(app.ScreenAuth), body["screen"])
	require.Equal(t, string(app.ModeWelcome), body["form"].(map[string]any)["mode"])

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteSelection, nil).Code)
}

func TestRefreshAndProfile(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodPost, server.RouteAuthRefresh, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.signIn(t)
	rec = f.do(t, http.MethodPost, server.RouteAuthRefresh, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, server.RouteProfile, map[string]string{"name": "Ana Lopez", "phone": "555-0100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "Ana Lopez", body["displayName"])
	require.Equal(t, "555-0100", body["profile"].(map[string]any)["phone"])

	rec = f.do(t, http.MethodPatch, server.RouteProfile, map[string]string{"phone": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, decode(t, rec)["profile"].(map[string]any)["phone"])

	rec = f.do(t, http.MethodPatch, server.RouteProfile, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIDTokenSignIn_NotConfigured(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodPost, server.RouteAuthIDToken, map[string]string{"idToken": "x"})
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.Equal(t, "not_configured", decode(t, rec)["error"])
}

func TestDeals(t *testing.T) {
	t.Run("requires sign in", func(t *testing.T) {
		f := setupServer(t)
		for _, route := range []struct{ method, path string }{
			{http.MethodGet, server.RouteDeals},
			{http.MethodPost, "/api/deals/1/claim"},
			{http.MethodGet, server.RouteSelection},
			{http.MethodDelete, server.RouteSelection},
		} {
			rec := f.do(t, route.method, route.path, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
			require.Equal(t, "unauthorized", decode(t, rec)["error"])
		}
	})

	t.Run("page", func(t *testing.T) {
		f := setupServer(t)
		f.signIn(t)

		rec := f.do(t, http.MethodGet, server.RouteDeals, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page app.DealsPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Equal(t, "$55.20", page.TotalSavings)
		require.Equal(t, 6, page.DealCount)
		require.Len(t, page.Deals, 6)
		require.Equal(t, "Ana", page.UserName)
	})

	t.Run("category filter", func(t *testing.T) {
		f := setupServer(t)
		f.signIn(t)

		rec := f.do(t, http.MethodGet, server.RouteDeals+"?category=Coffee", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var page app.DealsPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Deals, 1)
		require.Equal(t, "Starbucks UTC", page.Deals[0].Restaurant)
		require.Equal(t, "$55.20", page.TotalSavings)

		rec = f.do(t, http.MethodGet, server.RouteDeals+"?category=coffee", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "unknown_category", decode(t, rec)["error"])
	})

	t.Run("unknown sort", func(t *testing.T) {
		f := setupServer(t)
		f.signIn(t)
		rec := f.do(t, http.MethodGet, server.RouteDeals+"?sort=cheapest", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClaimAndSelection(t *testing.T) {
	f := setupServer(t)
	f.signIn(t)

	rec := f.do(t, http.MethodPost, "/api/deals/abc/claim", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/deals/99/claim", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "deal_not_found", decode(t, rec)["error"])

	rec = f.do(t, http.MethodGet, server.RouteSelection, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decode(t, rec)["open"])

	rec = f.do(t, http.MethodPost, "/api/deals/3/claim", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail app.DealDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "Chipotle", detail.Restaurant)
	require.Equal(t, "$24.00", detail.OriginalPrice)

	rec = f.do(t, http.MethodGet, server.RouteSelection, nil)
	body := decode(t, rec)
	require.Equal(t, true, body["open"])
	require.Equal(t, "Chipotle", body["deal"].(map[string]any)["restaurant"])

	rec = f.do(t, http.MethodDelete, server.RouteSelection, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, false, decode(t, f.do(t, http.MethodGet, server.RouteSelection, nil))["open"])
}

func TestCorsPreflight(t *testing.T) {
	f := setupServer(t)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, server.RouteDeals, nil)
		req.Header.Set("Origin", testOrigin)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, server.RouteDeals, nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMetrics(t *testing.T) {
	f := setupServer(t)
	f.do(t, http.MethodPost, server.RouteAuthSignIn, map[string]string{"email": testEmail, "password": "Wrong12345"})
	f.signIn(t)
	f.do(t, http.MethodPost, "/api/deals/3/claim", nil)

	rec := f.do(t, http.MethodGet, server.RouteMetrics, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, `bogo_auth_failures_total{action="signin"} 1`)
	require.Contains(t, out, `bogo_deal_opens_total{category="Mexican"} 1`)
	require.Contains(t, out, `bogo_session_events_total{event="SIGNED_IN"} 1`)
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupServer(t)
	f.server.RegisterRouteHandler("GET /boom", server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, f.server.RecoverMiddleware))

	rec := f.do(t, http.MethodGet, "/boom", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal_error", decode(t, rec)["error"])
}

func TestRoutes(t *testing.T) {
	f := setupServer(t)
	routes := f.server.Routes()
	require.Contains(t, routes, "GET "+server.RouteDeals)
	require.Contains(t, routes, "PATCH "+server.RouteProfile)
	require.Contains(t, routes, "GET "+server.RouteMetrics)

	bare, err := server.New(testConfig{Config: config.New()}, f.app)
	require.NoError(t, err)
	require.NotContains(t, bare.Routes(), "POST "+server.RouteAuthConfirm)
	require.NotContains(t, bare.Routes(), "GET "+server.RouteMetrics)
}
