package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Session & auth form
	RouteSession     = "/api/session"
	RouteAuthSignIn  = "/api/auth/signin"
	RouteAuthSignUp  = "/api/auth/signup"
	RouteAuthSignOut = "/api/auth/signout"
	RouteAuthReset   = "/api/auth/reset"

	// Provider-specific auth routes
	RouteAuthConfirm = "/api/auth/confirm"
	RouteAuthRecover = "/api/auth/recover"
	RouteAuthRefresh = "/api/auth/refresh"
	RouteAuthIDToken = "/api/auth/idtoken"
	RouteProfile     = "/api/profile"

	// Deals
	RouteDeals     = "/api/deals"
	RouteDealClaim = "/api/deals/{id}/claim"
	RouteSelection = "/api/selection"
)
