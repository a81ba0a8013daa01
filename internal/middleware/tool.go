package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/service"
)

// RequireTool returns a middleware that admits only principals allowed to
// use the named tool: superusers, or holders of an explicit grant for an
// active tool. Grants are re-read from the store per request, same as
// RequireRole. Assumes JWTAuth ran earlier in the chain.
func RequireTool(authz *service.Authorizer, toolName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := CurrentUserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			err := authz.RequireTool(c.Request().Context(), userID, toolName)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, service.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			case errors.Is(err, service.ErrUnauthorized):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			default:
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authorization check unavailable"})
			}
		}
	}
}
