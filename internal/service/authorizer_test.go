package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/repository"
)

// fakeStore is an in-memory credential store. Tool sets hold explicit
// grants only; the superuser union is the authorizer's job.
type fakeStore struct {
	users  map[uint64]model.User
	byName map[string]uint64
	roles  map[uint64][]model.Role
	tools  map[uint64][]model.Tool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[uint64]model.User{},
		byName: map[string]uint64{},
		roles:  map[uint64][]model.Role{},
		tools:  map[uint64][]model.Tool{},
	}
}

func (s *fakeStore) addUser(u model.User, roles []model.Role, tools []model.Tool) {
	s.users[u.ID] = u
	s.byName[u.Username] = u.ID
	s.roles[u.ID] = roles
	s.tools[u.ID] = tools
}

func (s *fakeStore) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	id, ok := s.byName[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return s.users[id], nil
}

func (s *fakeStore) FindByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) RolesForUser(_ context.Context, userID uint64) ([]model.Role, error) {
	return s.roles[userID], nil
}

func (s *fakeStore) ToolsForUser(_ context.Context, userID uint64) ([]model.Tool, error) {
	return s.tools[userID], nil
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

var (
	roleUser      = model.Role{ID: 3, Name: "user"}
	roleSuperuser = model.Role{ID: 1, Name: model.SuperuserRole}
	compareTool   = model.Tool{ID: 1, Name: "compare_tool", IsActive: true}
	retiredTool   = model.Tool{ID: 9, Name: "retired_tool", IsActive: false}
)

func TestRequireToolExplicitGrantOnly(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice", IsActive: true},
		[]model.Role{roleUser}, []model.Tool{compareTool})
	authz := NewAuthorizer(store)
	ctx := context.Background()

	c.Assert(authz.RequireTool(ctx, 1, "compare_tool"), qt.IsNil)
	c.Assert(authz.RequireTool(ctx, 1, "x_tool"), qt.Equals, ErrForbidden)
}

func TestRequireToolSuperuserBypassesGrants(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 2, Username: "bob", IsActive: true},
		[]model.Role{roleSuperuser}, nil)
	authz := NewAuthorizer(store)

	// No explicit rows at all, still allowed everywhere.
	c.Assert(authz.RequireTool(context.Background(), 2, "x_tool"), qt.IsNil)
}

func TestRequireToolInactiveToolDenied(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 3, Username: "carol", IsActive: true},
		[]model.Role{roleUser}, []model.Tool{retiredTool})
	authz := NewAuthorizer(store)

	// The grant exists but the tool is switched off.
	c.Assert(authz.RequireTool(context.Background(), 3, "retired_tool"), qt.Equals, ErrForbidden)
}

func TestRequireToolIdempotent(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice", IsActive: true},
		[]model.Role{roleUser}, []model.Tool{compareTool})
	authz := NewAuthorizer(store)
	ctx := context.Background()

	first := authz.RequireTool(ctx, 1, "compare_tool")
	second := authz.RequireTool(ctx, 1, "compare_tool")
	c.Assert(first, qt.IsNil)
	c.Assert(second, qt.IsNil)

	firstDenied := authz.RequireTool(ctx, 1, "x_tool")
	secondDenied := authz.RequireTool(ctx, 1, "x_tool")
	c.Assert(firstDenied, qt.Equals, secondDenied)
}

func TestRequireRole(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice", IsActive: true},
		[]model.Role{roleUser}, nil)
	authz := NewAuthorizer(store)
	ctx := context.Background()

	c.Assert(authz.RequireRole(ctx, 1, "user"), qt.IsNil)
	c.Assert(authz.RequireRole(ctx, 1, model.SuperuserRole), qt.Equals, ErrForbidden)
	// Any-of semantics across the listed roles.
	c.Assert(authz.RequireRole(ctx, 1, model.SuperuserRole, "user"), qt.IsNil)
}

func TestUnusablePrincipalIsUnauthorized(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 4, Username: "dave", IsActive: false},
		[]model.Role{roleSuperuser}, nil)
	authz := NewAuthorizer(store)
	ctx := context.Background()

	// Deactivated: even a superuser role set does not help.
	c.Assert(authz.RequireTool(ctx, 4, "compare_tool"), qt.Equals, ErrUnauthorized)
	c.Assert(authz.RequireRole(ctx, 4, model.SuperuserRole), qt.Equals, ErrUnauthorized)
	// Unknown principal id.
	c.Assert(authz.RequireRole(ctx, 999, "user"), qt.Equals, ErrUnauthorized)
}
