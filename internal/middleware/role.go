package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/service"
)

// RequireRole returns a middleware that admits only principals holding at
// least one of the named roles. The decision is delegated to the
// authorizer, which re-reads the role set from the store on every request
// so a revoked role takes effect immediately instead of at token expiry.
// Assumes JWTAuth ran earlier in the chain.
func RequireRole(authz *service.Authorizer, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := CurrentUserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			err := authz.RequireRole(c.Request().Context(), userID, roles...)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, service.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			case errors.Is(err, service.ErrUnauthorized):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			default:
				// Store connectivity problems are a 503, not a denial.
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authorization check unavailable"})
			}
		}
	}
}
