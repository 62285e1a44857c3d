package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteRoot+"{$}", ChainMiddleware(s.RootHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteAuthPasswordReset, ChainMiddleware(s.PasswordResetHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthPasswordResetConfirm, ChainMiddleware(s.PasswordResetConfirmHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware(s.OptionalAuth())...))
	s.RegisterRouteHandler("POST "+RouteAuthValidate, ChainMiddleware(s.ValidateHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAuthProtected, ChainMiddleware(s.ProtectedHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteHandler("GET "+RouteAuthJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPrefix+"/", ChainMiddleware(preflightHandler, s.APIMiddleware()...))

	s.RegisterRouteHandler(RouteRoot, ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}

func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
