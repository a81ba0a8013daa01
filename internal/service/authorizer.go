package service

import (
	"context"
	"errors"

	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/repository"
)

// Authorization failures. ErrUnauthorized means the principal itself is
// unusable (missing or deactivated) and maps to 401; ErrForbidden means
// the principal is fine but lacks the required role or tool and maps
// to 403.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AccessStore is the slice of the credential store the authorizer reads.
type AccessStore interface {
	FindByID(ctx context.Context, id uint64) (model.User, error)
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
	ToolsForUser(ctx context.Context, userID uint64) ([]model.Tool, error)
}

// Authorizer decides whether a principal may perform role-gated or
// tool-gated operations. It is the single home of the superuser rule;
// nothing outside this type may special-case the superuser role for an
// access decision.
//
// Roles and tools are loaded fresh from the store on every check rather
// than trusted from token claims: a grant revoked mid-token-lifetime must
// take effect on the next request, not at token expiry. The token is
// trusted for identity only.
type Authorizer struct {
	store AccessStore
}

func NewAuthorizer(store AccessStore) *Authorizer { return &Authorizer{store: store} }

// principal loads and vets the user behind a validated token subject.
func (a *Authorizer) principal(ctx context.Context, userID uint64) error {
	u, err := a.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !u.IsActive {
		return ErrUnauthorized
	}
	return nil
}

// RequireRole allows the request when the principal holds at least one of
// the named roles.
func (a *Authorizer) RequireRole(ctx context.Context, userID uint64, roleNames ...string) error {
	if err := a.principal(ctx, userID); err != nil {
		return err
	}
	roles, err := a.store.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		allowed[name] = true
	}
	for _, role := range roles {
		if allowed[role.Name] {
			return nil
		}
	}
	return ErrForbidden
}

// RequireTool allows the request when the principal is a superuser, or
// holds an explicit grant for an active tool of that name.
func (a *Authorizer) RequireTool(ctx context.Context, userID uint64, toolName string) error {
	if err := a.principal(ctx, userID); err != nil {
		return err
	}
	roles, err := a.store.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if role.Name == model.SuperuserRole {
			return nil
		}
	}
	// Non-superusers resolve to exactly their explicit grants.
	tools, err := a.store.ToolsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, tool := range tools {
		if tool.Name == toolName && tool.IsActive {
			return nil
		}
	}
	return ErrForbidden
}
