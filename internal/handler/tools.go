package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/middleware"
	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/repository"
)

// ToolHandler serves tool listings for regular users, the superuser-only
// tool administration endpoints, and the tool-gated access endpoints.
type ToolHandler struct {
	Tools *repository.ToolRepo
	Users *repository.UserRepo
}

func NewToolHandler(tools *repository.ToolRepo, users *repository.UserRepo) *ToolHandler {
	return &ToolHandler{Tools: tools, Users: users}
}

type createToolReq struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Route       string `json:"route"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

type updateToolReq struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	Route       *string `json:"route"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

// Mine lists the tools available to the current user.
func (h *ToolHandler) Mine(c echo.Context) error {
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
	return c.JSON(http.StatusOK, toolParts(tools))
}

// Get returns one tool, but only if the current user has access to it.
func (h *ToolHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tool id"})
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tool, err := h.Tools.GetByID(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tool not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tool failed"})
	}

	mine, err := h.Users.ToolsForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tools failed"})
	}
	for _, t := range mine {
		if t.ID == tool.ID {
			return c.JSON(http.StatusOK, toolParts([]model.Tool{tool})[0])
		}
	}
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// Access is the handler behind the per-tool gated endpoints; reaching it
// means the RequireTool middleware already admitted the principal.
func (h *ToolHandler) Access(toolName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		username, _ := c.Get(middleware.ContextUsername).(string)
		return c.JSON(http.StatusOK, echo.Map{
			"message": toolName + " accessed successfully",
			"user":    username,
			"tool":    toolName,
		})
	}
}

// ----- admin endpoints (superuser gate applied in the router) -----

// List returns all tools, inactive ones included.
func (h *ToolHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tools, err := h.Tools.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tools failed"})
	}
	return c.JSON(http.StatusOK, toolParts(tools))
}

// Create adds a tool.
func (h *ToolHandler) Create(c echo.Context) error {
	var req createToolReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.DisplayName) == "" ||
		strings.TrimSpace(req.Route) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, display_name and route required"})
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tool, err := h.Tools.Create(ctx, repository.CreateToolParams{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Route:       req.Route,
		Icon:        req.Icon,
		IsActive:    isActive,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateName):
		return c.JSON(http.StatusConflict, echo.Map{"error": "tool name already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create tool failed"})
	}
	return c.JSON(http.StatusCreated, toolParts([]model.Tool{tool})[0])
}

// Update applies a partial edit; the name is immutable because grants and
// gates reference it.
func (h *ToolHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tool id"})
	}
	var req updateToolReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tool, err := h.Tools.Update(ctx, id, repository.UpdateToolParams{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Route:       req.Route,
		Icon:        req.Icon,
		IsActive:    req.IsActive,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tool not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update tool failed"})
	}
	return c.JSON(http.StatusOK, toolParts([]model.Tool{tool})[0])
}

// Delete removes a tool; user_tools rows referencing it cascade away.
func (h *ToolHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tool id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Tools.Delete(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tool not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete tool failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "tool deleted"})
}
