package server

// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex    = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"

	// OAuth2 routes
	RouteAuthorize     = "/authorize"
	RouteToken         = "/token"
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	// Resource API routes
	RouteAPIMe                    = "/api/me"
	RouteAPIPrescriptions         = "/api/prescriptions"
	RouteAPIAdminPrescriptions    = "/api/admin/prescriptions"
	RouteAPIAdminPrescriptionStat = "/api/admin/prescriptions/{id}/status"
)

func (s *Server) initRoutes() {
	html := s.HTMLMiddleware()
	api := s.APIMiddleware()
	apiAuth := append(s.APIMiddleware(), s.RequireToken())
	apiAdmin := append(s.APIMiddleware(), s.RequireToken(), s.RequireAdmin())

	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), html...))

	// Login, registration, logout
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), html...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), html...))
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), html...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), html...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), html...))

	// OAuth2 endpoints
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.AuthorizeHandler(), html...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(), api...))

	// Token-gated resource API
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), apiAuth...))
	s.RegisterRouteHandler("GET "+RouteAPIPrescriptions, ChainMiddleware(s.ListPrescriptionsHandler(), apiAuth...))
	s.RegisterRouteHandler("POST "+RouteAPIPrescriptions, ChainMiddleware(s.CreatePrescriptionHandler(), apiAuth...))
	s.RegisterRouteHandler("GET "+RouteAPIAdminPrescriptions, ChainMiddleware(s.AdminListPrescriptionsHandler(), apiAdmin...))
	s.RegisterRouteHandler("PATCH "+RouteAPIAdminPrescriptionStat, ChainMiddleware(s.UpdatePrescriptionStatusHandler(), apiAdmin...))
}
