package middleware // reusable HTTP middleware shared by the protected route groups

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/utils"
)

// Context keys set by JWTAuth for downstream middleware and handlers.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the subject into the request context. Expired, malformed
// and wrong-type tokens all produce the same 401 body; the precise cause
// is a server-side log concern, not something to hand an attacker.
func JWTAuth(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := issuer.Verify(raw, utils.TokenTypeAccess)
			if err != nil {
				c.Logger().Debugf("token rejected: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUsername, claims.Username)
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated user id stored by JWTAuth, or
// false when the request is unauthenticated.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok
}
