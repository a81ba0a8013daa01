package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/handler"
	"github.com/acidash/dashboard-api/internal/middleware"
	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/service"
	"github.com/acidash/dashboard-api/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the dashboard API. Unauthenticated auth
// operations live under /api/auth; everything else under /api requires a
// valid access token, with the superuser gate applied to the /api/admin
// group and per-tool gates on the tool access endpoints.
func RegisterAPI(e *echo.Echo, issuer *utils.TokenIssuer, authz *service.Authorizer,
	a *handler.AuthHandler, u *handler.UserHandler, r *handler.RoleHandler, t *handler.ToolHandler) {

	// Login, refresh and reset-password authenticate by credential or by
	// refresh token, never by access token. Logout is also open: a client
	// with an expired access token must still be able to log out.
	auth := e.Group("/api/auth")
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/reset-password", a.ResetPassword)
	auth.POST("/logout", a.Logout)

	api := e.Group("/api")
	api.Use(middleware.JWTAuth(issuer))

	users := api.Group("/users")
	users.GET("/me", u.Me)
	users.GET("/me/roles", u.MeRoles)
	users.GET("/me/tools", u.MeTools)

	tools := api.Group("/tools")
	tools.GET("/mine", t.Mine)
	tools.GET("/:id", t.Get)
	// Gated entry points for the seeded tools. The gate resolves the
	// grant per request, so a revoked tool locks out immediately.
	tools.GET("/compare/access", t.Access("compare_tool"), middleware.RequireTool(authz, "compare_tool"))
	tools.GET("/excel-migration/access", t.Access("aci_excel_migration"), middleware.RequireTool(authz, "aci_excel_migration"))
	tools.GET("/inventory/access", t.Access("aci_inventory"), middleware.RequireTool(authz, "aci_inventory"))
	tools.GET("/chatgpt/access", t.Access("aci_chatgpt"), middleware.RequireTool(authz, "aci_chatgpt"))

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(authz, model.SuperuserRole))
	admin.GET("/users", u.List)
	admin.POST("/users", u.Create)
	admin.POST("/users/send-credentials", u.SendCredentials)
	admin.POST("/users/send-credentials/:id", u.SendCredentialsTo)
	admin.GET("/users/:id", u.Get)
	admin.PUT("/users/:id", u.Update)
	admin.DELETE("/users/:id", u.Delete)
	admin.GET("/roles", r.List)
	admin.POST("/roles", r.Create)
	admin.PUT("/roles/:id", r.Update)
	admin.DELETE("/roles/:id", r.Delete)
	admin.GET("/tools", t.List)
	admin.POST("/tools", t.Create)
	admin.PUT("/tools/:id", t.Update)
	admin.DELETE("/tools/:id", t.Delete)
}
