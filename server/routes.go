package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHome+"{$}", ChainMiddleware(s.HomeHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("GET "+RouteRegister, ChainMiddleware(s.RegisterFormHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("POST "+RouteRegister, ChainMiddleware(s.RegisterPostHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("GET "+RouteRegisterProvider, ChainMiddleware(s.RegisterHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("GET "+RouteRecovery, ChainMiddleware(s.RecoveryHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.RequireInitialized())...))

	// Signed in pages
	s.RegisterRouteFunc("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordGetHandler(), s.HTMLMiddleWare(s.RequireInitialized(), s.RequireLogin())...))
	s.RegisterRouteFunc("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPostHandler(), s.HTMLMiddleWare(s.RequireInitialized(), s.RequireLogin())...))
	s.RegisterRouteFunc("GET "+RouteDashboardOverview, ChainMiddleware(s.OverviewHandler(), s.HTMLMiddleWare(s.RequireInitialized(), s.RequireLogin())...))
	s.RegisterRouteFunc("GET "+RouteUserProfile, ChainMiddleware(s.UserProfileGetHandler(), s.HTMLMiddleWare(s.RequireInitialized(), s.RequireLogin())...))
	s.RegisterRouteFunc("POST "+RouteUserProfile, ChainMiddleware(s.UserProfilePostHandler(), s.HTMLMiddleWare(s.RequireInitialized(), s.RequireLogin())...))

	// API routes
	s.RegisterRouteFunc("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.staticFileHandler("css"), s.StaticMiddleware()...))
}

func (s *Server) staticFileHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := dir + "/" + r.PathValue("file")
		if err := StreamFile(w, filePath); err != nil {
			logError(r.Method, filePath, err)
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		}
	}
}
