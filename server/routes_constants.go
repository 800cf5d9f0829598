package server

// Route path constants
const (
	// Auth Routes
	RouteSignup             = "/api/auth/signup"
	RouteLogin              = "/api/auth/login"
	RouteRefreshToken       = "/api/auth/refresh_token"
	RouteLogout             = "/api/auth/logout"
	RouteConfirmEmail       = "/api/auth/confirmed_email/{token}"
	RouteResetPassword      = "/api/auth/reset_password"
	RouteResetPasswordToken = "/api/auth/reset_password/{token}"

	// User Routes
	RouteMe = "/api/users/me"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
