package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/middleware"
	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/queue"
	"github.com/acidash/dashboard-api/internal/repository"
	"github.com/acidash/dashboard-api/internal/service"
	"github.com/acidash/dashboard-api/internal/utils"
)

// UserHandler serves the current-user endpoints and the superuser-only
// user administration endpoints.
type UserHandler struct {
	Users      *repository.UserRepo
	Auth       *service.Authenticator
	Audit      service.AuditSink
	Creds      *service.CredentialNotifier
	BcryptCost int
	MinPwLen   int
}

func NewUserHandler(users *repository.UserRepo, auth *service.Authenticator,
	audit service.AuditSink, creds *service.CredentialNotifier, bcryptCost, minPwLen int) *UserHandler {
	return &UserHandler{Users: users, Auth: auth, Audit: audit, Creds: creds,
		BcryptCost: bcryptCost, MinPwLen: minPwLen}
}

// ----- DTOs -----

type createUserReq struct {
	FullName string   `json:"full_name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	IsActive *bool    `json:"is_active"`
	RoleIDs  []uint64 `json:"role_ids"`
	ToolIDs  []uint64 `json:"tool_ids"`
}

type updateUserReq struct {
	FullName *string   `json:"full_name"`
	Username *string   `json:"username"`
	Email    *string   `json:"email"`
	Password *string   `json:"password"`
	IsActive *bool     `json:"is_active"`
	RoleIDs  *[]uint64 `json:"role_ids"`
	ToolIDs  *[]uint64 `json:"tool_ids"`
}

// Me returns the authenticated user's profile with resolved roles and
// tools.
func (h *UserHandler) Me(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, err := h.Auth.Profile(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}
	return c.JSON(http.StatusOK, profile)
}

// MeRoles returns the current user's role names.
func (h *UserHandler) MeRoles(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Users.RolesForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": names})
}

// MeTools returns the tools available to the current user, superuser
// union included.
func (h *UserHandler) MeTools(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tools, err := h.Users.ToolsForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tools failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tools": toolParts(tools)})
}

// ----- admin endpoints (superuser gate applied in the router) -----

// List returns all users with their roles and tools, inactive ones
// included.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]service.Profile, 0, len(users))
	for _, u := range users {
		view, err := h.userView(ctx, u)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
		}
		out = append(out, view)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one user with roles and tools.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	view, err := h.userView(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, view)
}

// Create adds a user with role and tool assignments. The password must
// pass the policy before it is hashed.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name, username, email and password required"})
	}
	if err := utils.ValidatePassword(req.Password, h.MinPwLen); err != nil {
		var policyErr *utils.PolicyError
		if !errors.As(err, &policyErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid password"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weak password", "reasons": policyErr.Reasons})
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, repository.CreateUserParams{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: isActive,
		RoleIDs:  req.RoleIDs,
		ToolIDs:  req.ToolIDs,
	}, h.BcryptCost)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	h.audit(c, queue.EventUserCreated, u)
	view, err := h.userView(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, view)
}

// Update applies a partial update; a supplied password is policy-checked
// and re-hashed, supplied role/tool sets replace the existing ones.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password, h.MinPwLen); err != nil {
			var policyErr *utils.PolicyError
			if !errors.As(err, &policyErr) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid password"})
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "weak password", "reasons": policyErr.Reasons})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, id, repository.UpdateUserParams{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
		RoleIDs:  req.RoleIDs,
		ToolIDs:  req.ToolIDs,
	}, h.BcryptCost)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}

	h.audit(c, queue.EventUserUpdated, u)
	view, err := h.userView(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	return c.JSON(http.StatusOK, view)
}

// Delete removes a user. Administrators cannot delete their own account;
// association rows go with the user via cascade.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Users.Delete(ctx, id, requesterID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSelfDeletion):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot delete your own account"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}

	h.audit(c, queue.EventUserDeleted, model.User{ID: id})
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// SendCredentials mails every user their account information.
func (h *UserHandler) SendCredentials(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	report, err := h.Creds.NotifyAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send credentials failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":          "credential sending completed",
		"total_users":      report.Total,
		"successful_sends": report.Sent,
		"failed_sends":     report.Failed,
	})
}

// SendCredentialsTo mails one user their account information.
func (h *UserHandler) SendCredentialsTo(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.Creds.NotifyUser(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send credentials failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "credentials sent to " + u.Email,
		"user_email": u.Email,
		"user_name":  u.FullName,
	})
}

func (h *UserHandler) audit(c echo.Context, eventType string, u model.User) {
	if h.Audit == nil {
		return
	}
	actor, _ := c.Get(middleware.ContextUsername).(string)
	h.Audit.Publish(c.Request().Context(), queue.AuthEvent{
		Type:     eventType,
		Username: u.Username,
		UserID:   u.ID,
		IP:       c.RealIP(),
		Detail:   "by " + actor,
	})
}

// userView assembles the admin view of a user: profile shape, inactive
// users included.
func (h *UserHandler) userView(ctx context.Context, u model.User) (service.Profile, error) {
	roles, err := h.Users.RolesForUser(ctx, u.ID)
	if err != nil {
		return service.Profile{}, err
	}
	tools, err := h.Users.ToolsForUser(ctx, u.ID)
	if err != nil {
		return service.Profile{}, err
	}
	p := service.Profile{
		ID:        u.ID,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		Roles:     make([]service.RolePart, 0, len(roles)),
		Tools:     toolParts(tools),
	}
	for _, role := range roles {
		p.Roles = append(p.Roles, service.RolePart{ID: role.ID, Name: role.Name, Description: role.Description})
	}
	return p, nil
}

func toolParts(tools []model.Tool) []service.ToolPart {
	parts := make([]service.ToolPart, 0, len(tools))
	for _, t := range tools {
		parts = append(parts, service.ToolPart{
			ID:          t.ID,
			Name:        t.Name,
			DisplayName: t.DisplayName,
			Description: t.Description,
			Route:       t.Route,
			Icon:        t.Icon,
			IsActive:    t.IsActive,
		})
	}
	return parts
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
