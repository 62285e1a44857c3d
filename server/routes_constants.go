package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteRoot      = "/"
	RouteAPIPrefix = "/api/v1"

	RouteHealth = RouteAPIPrefix + "/health"

	// Auth Routes - token issuing
	RouteAuthRegister = RouteAPIPrefix + "/auth/register"
	RouteAuthLogin    = RouteAPIPrefix + "/auth/login"
	RouteAuthRefresh  = RouteAPIPrefix + "/auth/refresh"

	// Auth Routes - Password Management
	RouteAuthPasswordReset        = RouteAPIPrefix + "/auth/password-reset"
	RouteAuthPasswordResetConfirm = RouteAPIPrefix + "/auth/password-reset/confirm"

	// Auth Routes - bearer protected
	RouteAuthMe        = RouteAPIPrefix + "/auth/me"
	RouteAuthStatus    = RouteAPIPrefix + "/auth/status"
	RouteAuthValidate  = RouteAPIPrefix + "/auth/validate"
	RouteAuthProtected = RouteAPIPrefix + "/auth/protected"

	RouteAuthJWKS = RouteAPIPrefix + "/auth/.well-known/jwks.json"
)
