package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/repository"
)

// RoleHandler serves the superuser-only role administration endpoints.
// Roles are near-static reference data; edits here are rare.
type RoleHandler struct {
	Roles *repository.RoleRepo
}

func NewRoleHandler(roles *repository.RoleRepo) *RoleHandler { return &RoleHandler{Roles: roles} }

type roleReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type roleResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns all roles.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list roles failed"})
	}
	out := make([]roleResp, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResp{ID: role.ID, Name: role.Name, Description: role.Description})
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a new role.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	desc := ""
	if req.Description != nil {
		desc = *req.Description
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.Create(ctx, *req.Name, desc)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateName):
		return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create role failed"})
	}
	return c.JSON(http.StatusCreated, roleResp{ID: role.ID, Name: role.Name, Description: role.Description})
}

// Update edits a role's name or description.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.Update(ctx, id, req.Name, req.Description)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.JSON(http.StatusOK, roleResp{ID: role.ID, Name: role.Name, Description: role.Description})
}

// Delete removes a role; user_roles rows referencing it cascade away.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Roles.Delete(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role deleted"})
}
