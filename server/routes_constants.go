package server

// Route path constants
const (
	// Auth Routes
	RouteIndex      = "/"
	RouteCallback   = "/callback"
	RouteAuthLogout = "/auth/logout"
	RouteAuthStatus = "/auth/status"

	// API Routes
	RouteAPIActivities = "/api/activities"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

// Error codes appended to the frontend URL when login fails
const (
	callbackErrNoCode        = "no_code"
	callbackErrInvalidState  = "invalid_state"
	callbackErrTokenExchange = "token_exchange_failed"
	callbackErrInternal      = "internal_error"
)
