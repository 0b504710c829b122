package server

import (
	"net/http"

	"github.com/jrsteele09/bogo-finds/internal/metrics"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// Session & auth form
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignIn, ChainMiddleware(s.SignInHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignUp, ChainMiddleware(s.SignUpHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignOut, ChainMiddleware(s.SignOutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthReset, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))

	if s.auth != nil {
		s.RegisterRouteHandler("POST "+RouteAuthConfirm, ChainMiddleware(s.ConfirmEmailHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteAuthRecover, ChainMiddleware(s.CompleteRecoveryHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteAuthIDToken, ChainMiddleware(s.IDTokenSignInHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("PATCH "+RouteProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware()...))
	}

	// Deals, answered with 401 unless a user is signed in
	s.RegisterRouteHandler("GET "+RouteDeals, ChainMiddleware(s.DealsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteDealClaim, ChainMiddleware(s.ClaimHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSelection, ChainMiddleware(s.SelectionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteSelection, ChainMiddleware(s.CloseSelectionHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.CorsMiddleware))

	if s.gatherer != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler(s.gatherer))
	}
}
