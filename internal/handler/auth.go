package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/middleware"
	"github.com/acidash/dashboard-api/internal/queue"
	"github.com/acidash/dashboard-api/internal/service"
	"github.com/acidash/dashboard-api/internal/utils"
)

// AuthHandler bundles dependencies for the authentication endpoints.
type AuthHandler struct {
	Auth  *service.Authenticator
	Audit service.AuditSink
}

func NewAuthHandler(auth *service.Authenticator, audit service.AuditSink) *AuthHandler {
	return &AuthHandler{Auth: auth, Audit: audit}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordReq struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type loginResp struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	User         service.Profile `json:"user"`
}

type refreshResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login verifies credentials and returns a token pair with the user
// profile. Unknown username, wrong password and deactivated account are
// indistinguishable from the outside.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Username, req.Password, c.RealIP())
	switch {
	case err == nil:
	case errors.Is(err, service.ErrTooManyAttempts):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many failed attempts, try again later"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  res.Access.Token,
		RefreshToken: res.Refresh.Token,
		TokenType:    "bearer",
		User:         res.User,
	})
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	access, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	return c.JSON(http.StatusOK, refreshResp{AccessToken: access.Token, TokenType: "bearer"})
}

// Logout acknowledges a logout. Tokens are stateless, so the server keeps
// nothing to revoke; the client clears its session and the event is
// audited.
func (h *AuthHandler) Logout(c echo.Context) error {
	if h.Audit != nil {
		username, _ := c.Get(middleware.ContextUsername).(string)
		userID, _ := c.Get(middleware.ContextUserID).(uint64)
		h.Audit.Publish(c.Request().Context(), queue.AuthEvent{
			Type:     queue.EventLogout,
			Username: username,
			UserID:   userID,
			IP:       c.RealIP(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}

// ResetPassword changes a password after verifying the current one. The
// new password must satisfy the policy; every violated rule is returned.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, current_password and new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Auth.ResetPassword(ctx, req.Username, req.CurrentPassword, req.NewPassword, c.RealIP())
	var policyErr *utils.PolicyError
	switch {
	case err == nil:
	case errors.As(err, &policyErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weak password", "reasons": policyErr.Reasons})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or current password"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password successfully reset"})
}
