package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/bogo-finds/app"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

// errorStatuses maps application errors to responses. An empty description
// falls back to the auth form message.
var errorStatuses = []struct {
	err         error
	status      int
	code        string
	description string
}{
	{apperrors.ErrSessionNotFound, http.StatusUnauthorized, "unauthorized", "Please sign in to continue."},
	{apperrors.ErrSessionExpired, http.StatusUnauthorized, "session_expired", "Your session has expired. Please sign in again."},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "Please sign in to continue."},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{apperrors.ErrEmailNotConfirmed, http.StatusForbidden, "email_not_confirmed", ""},
	{apperrors.ErrUserAlreadyRegistered, http.StatusConflict, "user_already_registered", ""},
	{app.ErrFormBusy, http.StatusConflict, "busy", "Please wait for the current request to finish."},
	{apperrors.ErrWeakPassword, http.StatusBadRequest, "weak_password", ""},
	{apperrors.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", ""},
	{apperrors.ErrInvalidRecoveryCode, http.StatusBadRequest, "invalid_code", ""},
	{apperrors.ErrUnknownCategory, http.StatusBadRequest, "unknown_category", "That category does not exist."},
	{apperrors.ErrUnknownSortMode, http.StatusBadRequest, "unknown_sort_mode", "That sort order does not exist."},
	{app.ErrWrongFormMode, http.StatusBadRequest, "invalid_request", "That action is not available here."},
	{apperrors.ErrDealNotFound, http.StatusNotFound, "deal_not_found", "That deal is no longer available."},
	{apperrors.ErrNotConfigured, http.StatusNotImplemented, "not_configured", "This sign-in method is not available."},
	{apperrors.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable", ""},
}

// statusFor maps an application error to its HTTP status, error code and description.
func statusFor(err error) (int, string, string) {
	for _, e := range errorStatuses {
		if apperrors.Is(err, e.err) {
			description := e.description
			if description == "" {
				description = sessions.UserMessage(err)
			}
			return e.status, e.code, description
		}
	}
	return http.StatusInternalServerError, "internal_error", sessions.UserMessage(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeAppError answers with the status mapped from err. Unmapped errors are logged.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, description := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSONError(w, code, description, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, "invalid_request", "The request body is not valid JSON.", http.StatusBadRequest)
		return false
	}
	return true
}

type sessionResponse struct {
	Screen      app.Screen        `json:"screen"`
	Loading     bool              `json:"loading"`
	User        *sessions.User    `json:"user"`
	Profile     *sessions.Profile `json:"profile"`
	DisplayName string            `json:"displayName,omitempty"`
	Initial     string            `json:"initial,omitempty"`
	Form        app.AuthFormView  `json:"form"`
}

// authResponse carries the session plus the failure, when the form action failed.
type authResponse struct {
	sessionResponse
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (s *Server) session() sessionResponse {
	state := s.app.State()
	resp := sessionResponse{
		Screen:  app.ScreenFor(state),
		Loading: state.Loading,
		User:    state.User,
		Profile: state.Profile,
		Form:    s.app.Form().View(),
	}
	if state.User != nil {
		resp.DisplayName = app.DisplayName(state)
		resp.Initial = app.Initial(resp.DisplayName)
	}
	return resp
}

func (s *Server) writeAuthResult(w http.ResponseWriter, err error) {
	resp := authResponse{sessionResponse: s.session()}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	status, code, description := statusFor(err)
	resp.Error = code
	resp.ErrorDescription = description
	writeJSON(w, status, resp)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.session())
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields app.Fields
		if !decodeJSON(w, r, &fields) {
			return
		}
		form := s.app.Form()
		form.ShowLogin()
		s.writeAuthResult(w, form.Submit(r.Context(), fields))
	}
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields app.Fields
		if !decodeJSON(w, r, &fields) {
			return
		}
		form := s.app.Form()
		form.ShowSignUp()
		s.writeAuthResult(w, form.Submit(r.Context(), fields))
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.app.SignOut(r.Context())
		s.app.Form().Back()
		writeJSON(w, http.StatusOK, s.session())
	}
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		form := s.app.Form()
		form.ShowLogin()
		s.writeAuthResult(w, form.RequestReset(r.Context(), req.Email))
	}
}

func (s *Server) ConfirmEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code string `json:"code"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.writeAuthResult(w, s.auth.ConfirmEmail(r.Context(), strings.TrimSpace(req.Code)))
	}
}

func (s *Server) CompleteRecoveryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code     string `json:"code"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.writeAuthResult(w, s.auth.CompleteRecovery(r.Context(), strings.TrimSpace(req.Code), req.Password))
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeAuthResult(w, s.auth.RefreshSession(r.Context()))
	}
}

func (s *Server) IDTokenSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDToken string `json:"idToken"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.writeAuthResult(w, s.auth.SignInWithIDToken(r.Context(), req.IDToken))
	}
}

// UpdateProfileHandler patches name and phone. An empty string removes the field.
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  *string `json:"name"`
			Phone *string `json:"phone"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		metadata := map[string]any{}
		for key, value := range map[string]*string{"name": req.Name, "phone": req.Phone} {
			if value == nil {
				continue
			}
			if v := strings.TrimSpace(*value); v != "" {
				metadata[key] = v
			} else {
				metadata[key] = nil
			}
		}
		if len(metadata) == 0 {
			writeJSONError(w, "invalid_request", "Nothing to update.", http.StatusBadRequest)
			return
		}
		s.writeAuthResult(w, s.auth.UpdateUserMetadata(r.Context(), metadata))
	}
}

// DealsHandler applies the optional category and sort query parameters, then
// returns the page.
func (s *Server) DealsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Has("category") {
			if err := s.app.SelectCategory(query.Get("category")); err != nil {
				writeAppError(w, r, err)
				return
			}
		}
		if query.Has("sort") {
			if err := s.app.SelectSort(query.Get("sort")); err != nil {
				writeAppError(w, r, err)
				return
			}
		}
		page, err := s.app.DealsPage()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) ClaimHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, "invalid_request", "Deal id must be a number.", http.StatusBadRequest)
			return
		}
		detail, err := s.app.Claim(id)
		if err != nil {
			writeAppError(w, r, errors.Wrapf(err, "claim deal %d", id))
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

type selectionResponse struct {
	Open bool            `json:"open"`
	Deal *app.DealDetail `json:"deal"`
}

func (s *Server) SelectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, ok, err := s.app.Selected()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		resp := selectionResponse{Open: ok}
		if ok {
			resp.Deal = &detail
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) CloseSelectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.app.Screen() != app.ScreenDeals {
			writeAppError(w, r, apperrors.ErrSessionNotFound)
			return
		}
		s.app.CloseDeal()
		w.WriteHeader(http.StatusNoContent)
	}
}
