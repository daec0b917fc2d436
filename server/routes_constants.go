package server

// Route path constants
const (
	RouteHome = "/"

	// Login & Logout
	RouteLogin            = "/login"
	RouteRegister         = "/register"
	RouteRegisterProvider = "/register/provider"
	RouteCallback         = "/callback"
	RouteLogout           = "/logout"

	// Password Management
	RouteRecovery      = "/recovery"
	RouteResetPassword = "/reset-password"

	// Dashboard
	RouteDashboardOverview = "/dashboard/overview"
	RouteUserProfile       = "/dashboard/user-profile"

	// API Routes
	RouteAPISession = "/api/session"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)

// DefaultReturnTo is where a completed login lands when no page asked for it
const DefaultReturnTo = RouteDashboardOverview
