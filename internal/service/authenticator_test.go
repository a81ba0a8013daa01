package service

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"

	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/utils"
)

// fakeLimiter counts failures in memory and blocks at the threshold.
type fakeLimiter struct {
	failures map[string]int
	max      int
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{failures: map[string]int{}, max: max}
}

func (l *fakeLimiter) key(username, ip string) string { return username + ":" + ip }

func (l *fakeLimiter) Blocked(_ context.Context, username, ip string) bool {
	return l.failures[l.key(username, ip)] >= l.max
}

func (l *fakeLimiter) RecordFailure(_ context.Context, username, ip string) {
	l.failures[l.key(username, ip)]++
}

func (l *fakeLimiter) Clear(_ context.Context, username, ip string) {
	delete(l.failures, l.key(username, ip))
}

const testPassword = "Str0ng!Enough"

func mustHash(c *qt.C, plain string) string {
	hash, err := utils.HashPassword(plain, 10)
	c.Assert(err, qt.IsNil)
	return hash
}

func newTestAuthenticator(c *qt.C, store UserStore, limiter LoginLimiter) *Authenticator {
	c.Helper()
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 30, 7)
	return NewAuthenticator(store, issuer, limiter, nil, nil, 12, 10, zerolog.Nop())
}

func TestLoginSuccess(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 42, Username: "alice", Email: "alice@example.com",
		PasswordHash: mustHash(c, testPassword), IsActive: true},
		[]model.Role{roleUser}, []model.Tool{compareTool})
	auth := newTestAuthenticator(c, store, nil)

	res, err := auth.Login(context.Background(), "Alice ", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Access.Token, qt.Not(qt.Equals), "")
	c.Assert(res.Refresh.Token, qt.Not(qt.Equals), "")
	c.Assert(res.User.ID, qt.Equals, uint64(42))
	c.Assert(res.User.Roles, qt.HasLen, 1)
	c.Assert(res.User.Tools, qt.HasLen, 1)

	// Access token subject decodes back to the user.
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 30, 7)
	claims, err := issuer.Verify(res.Access.Token, utils.TokenTypeAccess)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UserID, qt.Equals, uint64(42))
	c.Assert(claims.Username, qt.Equals, "alice")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice",
		PasswordHash: mustHash(c, testPassword), IsActive: true}, nil, nil)
	store.addUser(model.User{ID: 2, Username: "mallory",
		PasswordHash: mustHash(c, testPassword), IsActive: false}, nil, nil)
	auth := newTestAuthenticator(c, store, nil)
	ctx := context.Background()

	_, unknownUser := auth.Login(ctx, "nobody", testPassword, "10.0.0.1")
	_, wrongPassword := auth.Login(ctx, "alice", "WrongPass1!x", "10.0.0.1")
	_, inactive := auth.Login(ctx, "mallory", testPassword, "10.0.0.1")

	c.Assert(unknownUser, qt.Equals, ErrInvalidCredentials)
	c.Assert(wrongPassword, qt.Equals, ErrInvalidCredentials)
	c.Assert(inactive, qt.Equals, ErrInvalidCredentials)
}

func TestLoginLockout(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice",
		PasswordHash: mustHash(c, testPassword), IsActive: true}, nil, nil)
	limiter := newFakeLimiter(3)
	auth := newTestAuthenticator(c, store, limiter)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := auth.Login(ctx, "alice", "WrongPass1!x", "10.0.0.1")
		c.Assert(err, qt.Equals, ErrInvalidCredentials)
	}
	// Window exhausted: even the right password is refused now.
	_, err := auth.Login(ctx, "alice", testPassword, "10.0.0.1")
	c.Assert(err, qt.Equals, ErrTooManyAttempts)

	// A different IP has its own window.
	res, err := auth.Login(ctx, "alice", testPassword, "10.0.0.2")
	c.Assert(err, qt.IsNil)
	c.Assert(res.User.Username, qt.Equals, "alice")
	// And the success cleared that window.
	c.Assert(limiter.failures["alice:10.0.0.2"], qt.Equals, 0)
}

func TestRefresh(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 7, Username: "alice",
		PasswordHash: mustHash(c, testPassword), IsActive: true}, nil, nil)
	auth := newTestAuthenticator(c, store, nil)
	ctx := context.Background()

	res, err := auth.Login(ctx, "alice", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)

	access, err := auth.Refresh(ctx, res.Refresh.Token)
	c.Assert(err, qt.IsNil)
	claims, err := utils.NewTokenIssuer("access-secret", "refresh-secret", 30, 7).
		Verify(access.Token, utils.TokenTypeAccess)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UserID, qt.Equals, uint64(7))

	// An access token is not accepted on the refresh path.
	_, err = auth.Refresh(ctx, res.Access.Token)
	c.Assert(err, qt.Equals, ErrUnauthorized)
}

func TestRefreshDeactivatedAccount(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 7, Username: "alice",
		PasswordHash: mustHash(c, testPassword), IsActive: true}, nil, nil)
	auth := newTestAuthenticator(c, store, nil)
	ctx := context.Background()

	res, err := auth.Login(ctx, "alice", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)

	u := store.users[7]
	u.IsActive = false
	store.users[7] = u

	_, err = auth.Refresh(ctx, res.Refresh.Token)
	c.Assert(err, qt.Equals, ErrUnauthorized)
}

func TestResetPassword(t *testing.T) {
	c := qt.New(t)
	store := newFakeStore()
	store.addUser(model.User{ID: 1, Username: "alice",
		PasswordHash: mustHash(c, testPassword), IsActive: true}, nil, nil)
	auth := newTestAuthenticator(c, store, nil)
	ctx := context.Background()

	// Wrong current password presents the same generic error as login.
	err := auth.ResetPassword(ctx, "alice", "WrongPass1!x", "N3w!Password", "10.0.0.1")
	c.Assert(err, qt.Equals, ErrInvalidCredentials)

	// A weak replacement is refused with the full list of violations.
	err = auth.ResetPassword(ctx, "alice", testPassword, "short", "10.0.0.1")
	var policyErr *utils.PolicyError
	c.Assert(errors.As(err, &policyErr), qt.IsTrue)
	c.Assert(len(policyErr.Reasons) > 0, qt.IsTrue)

	err = auth.ResetPassword(ctx, "alice", testPassword, "N3w!Password", "10.0.0.1")
	c.Assert(err, qt.IsNil)
	c.Assert(utils.VerifyPassword(store.users[1].PasswordHash, "N3w!Password"), qt.IsTrue)
	c.Assert(utils.VerifyPassword(store.users[1].PasswordHash, testPassword), qt.IsFalse)
}
