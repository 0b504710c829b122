package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/bogo-finds/app"
	"github.com/jrsteele09/bogo-finds/auth"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/internal/config"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	app      *app.App
	auth     *auth.Service
	gatherer prometheus.Gatherer
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithAuthService exposes the provider-specific routes: email confirmation,
// password recovery, token refresh, profile update and ID token sign-in.
func WithAuthService(authService *auth.Service) ServerOption {
	return func(s *Server) {
		s.auth = authService
	}
}

// WithGatherer serves gatherer's metrics on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// New builds the JSON surface over a started app.
func New(c config.Config, a *app.App, options ...ServerOption) (*Server, error) {
	if c == nil {
		return nil, errors.Wrap(apperrors.ErrNotConfigured, "[server.New] config is required")
	}
	if a == nil {
		return nil, errors.Wrap(apperrors.ErrNotConfigured, "[server.New] app is required")
	}

	s := &Server{
		env:    c.GetEnv(),
		mux:    http.NewServeMux(),
		config: c,
		app:    a,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
