package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/bogo-finds/app"
	"github.com/jrsteele09/bogo-finds/auth"
	"github.com/jrsteele09/bogo-finds/deals"
	"github.com/jrsteele09/bogo-finds/internal/config"
	"github.com/jrsteele09/bogo-finds/internal/metrics"
	"github.com/jrsteele09/bogo-finds/server"
	"github.com/jrsteele09/bogo-finds/token"
	"github.com/jrsteele09/bogo-finds/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	oidcDiscoveryTimeout  = 10 * time.Second
	revokedTokenCleanup   = 15 * time.Minute
	shutdownTimeout       = 5 * time.Second
	serverReadHeaderLimit = 10 * time.Second
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm, err := token.New(c)
	if err != nil {
		return fmt.Errorf("token.New: %w", err)
	}
	go cleanupRevokedTokens(ctx, tm)

	userRepo := users.NewInMemoryUserRepo()
	if err := seedDemoUser(c, userRepo); err != nil {
		return err
	}

	authOptions := []auth.ServiceOption{auth.WithRequireEmailConfirmation(c.GetRequireEmailConfirmation())}
	if verifier := idTokenVerifier(ctx, c); verifier != nil {
		authOptions = append(authOptions, auth.WithIDTokenVerifier(verifier))
	}
	authService, err := auth.NewService(auth.Repos{Users: userRepo, Sessions: auth.NewInMemorySessionRepo()}, tm, authOptions...)
	if err != nil {
		return fmt.Errorf("auth.NewService: %w", err)
	}

	engine, err := deals.NewEngine(deals.DefaultCatalog())
	if err != nil {
		return fmt.Errorf("deals.NewEngine: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(authService, engine,
		app.WithMetrics(metrics.NewCollector(registry)),
		app.WithLocation(c.GetCatalogLocation()),
		app.WithPageURL(c.GetPublicURL()),
	)
	if err != nil {
		return fmt.Errorf("app.New: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("app.Start: %w", err)
	}
	defer a.Close()

	handler, err := server.New(c, a, server.WithAuthService(authService), server.WithGatherer(registry))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: serverReadHeaderLimit}
	go func() {
		if err := listenAndServe(httpServer); err != nil {
			log.Error().Err(err).Msg("listener stopped")
		}
	}()
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func seedDemoUser(c config.Config, repo users.UserRepo) error {
	email := users.NormaliseEmail(c.GetDemoEmail())
	if email == "" {
		return nil
	}
	hash, err := users.HashPassword(c.GetDemoPassword())
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}
	user := &users.User{Email: email, PasswordHash: hash, Confirmed: true}
	if name := c.GetDemoName(); name != "" {
		user.Metadata = map[string]any{"name": name}
	}
	if err := repo.Upsert(user); err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}
	log.Info().Str("email", email).Msg("seeded demo user")
	return nil
}

// idTokenVerifier returns nil when OIDC is not configured or discovery fails.
func idTokenVerifier(ctx context.Context, c config.Config) *oidc.IDTokenVerifier {
	issuer, clientID := c.GetOIDCIssuer(), c.GetOIDCClientID()
	if issuer == "" || clientID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, oidcDiscoveryTimeout)
	defer cancel()
	verifier, err := auth.NewIDTokenVerifier(ctx, issuer, clientID)
	if err != nil {
		log.Warn().Err(err).Str("issuer", issuer).Msg("ID token sign-in disabled")
		return nil
	}
	return verifier
}

func cleanupRevokedTokens(ctx context.Context, tm *token.Manager) {
	ticker := time.NewTicker(revokedTokenCleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tm.CleanupRevokedTokens()
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
