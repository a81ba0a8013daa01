// Package service holds the authentication core behind the HTTP layer:
// login orchestration, the authorization decision, the brute-force
// limiter and the audit publisher.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/queue"
	"github.com/acidash/dashboard-api/internal/repository"
	"github.com/acidash/dashboard-api/internal/utils"
)

// ErrInvalidCredentials covers every login failure cause: unknown
// username, wrong password and deactivated account all present this same
// error so the response cannot be used to enumerate usernames.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTooManyAttempts is returned when the lockout window for the
// username+IP pair is exhausted.
var ErrTooManyAttempts = errors.New("too many failed login attempts")

// UserStore is the slice of the credential store the authenticator needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
	ToolsForUser(ctx context.Context, userID uint64) ([]model.Tool, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
}

// RolePart and ToolPart are the JSON shapes of roles and tools inside a
// user profile.
type RolePart struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ToolPart struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Route       string `json:"route"`
	Icon        string `json:"icon"`
	IsActive    bool   `json:"is_active"`
}

// Profile is the client-visible view of a user: identity plus the roles
// and tools resolved for them (superusers see every active tool). It
// deliberately has no field for the password hash.
type Profile struct {
	ID        uint64     `json:"id"`
	FullName  string     `json:"full_name"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	Roles     []RolePart `json:"roles"`
	Tools     []ToolPart `json:"tools"`
}

// LoginResult is a successful login: a fresh token pair plus the profile
// for the client to cache.
type LoginResult struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
	User    Profile
}

// Authenticator orchestrates login, token refresh and password reset.
type Authenticator struct {
	store   UserStore
	issuer  *utils.TokenIssuer
	limiter LoginLimiter
	audit   AuditSink
	mail    Mailer
	minLen  int
	cost    int
	log     zerolog.Logger
}

func NewAuthenticator(store UserStore, issuer *utils.TokenIssuer, limiter LoginLimiter,
	audit AuditSink, mail Mailer, minPasswordLen, bcryptCost int, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		store:   store,
		issuer:  issuer,
		limiter: limiter,
		audit:   audit,
		mail:    mail,
		minLen:  minPasswordLen,
		cost:    bcryptCost,
		log:     log,
	}
}

func (a *Authenticator) publish(ctx context.Context, ev queue.AuthEvent) {
	if a.audit != nil {
		a.audit.Publish(ctx, ev)
	}
}

// Login verifies a username/password pair and mints a token pair. All
// verification failures surface as ErrInvalidCredentials; which step
// failed is logged server-side only.
func (a *Authenticator) Login(ctx context.Context, username, password, ip string) (LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if a.limiter != nil && a.limiter.Blocked(ctx, username, ip) {
		a.publish(ctx, queue.AuthEvent{Type: queue.EventLockout, Username: username, IP: ip})
		return LoginResult{}, ErrTooManyAttempts
	}

	fail := func(reason string) (LoginResult, error) {
		if a.limiter != nil {
			a.limiter.RecordFailure(ctx, username, ip)
		}
		a.log.Debug().Str("username", username).Str("reason", reason).Msg("login rejected")
		a.publish(ctx, queue.AuthEvent{Type: queue.EventLoginFailure, Username: username, IP: ip, Detail: reason})
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail("unknown username")
		}
		return LoginResult{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return fail("wrong password")
	}
	if !u.IsActive {
		return fail("inactive account")
	}

	access, err := a.issuer.IssueAccess(u.ID, u.Username)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := a.issuer.IssueRefresh(u.ID, u.Username)
	if err != nil {
		return LoginResult{}, err
	}
	profile, err := a.profileFor(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}

	if a.limiter != nil {
		a.limiter.Clear(ctx, username, ip)
	}
	a.publish(ctx, queue.AuthEvent{Type: queue.EventLoginSuccess, Username: u.Username, UserID: u.ID, IP: ip})

	return LoginResult{Access: access, Refresh: refresh, User: profile}, nil
}

// Refresh validates a refresh token and issues a new access token. The
// refresh token itself is not rotated. The user is re-checked so that a
// deactivated or deleted account cannot keep minting access tokens for
// the rest of the refresh TTL.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (utils.SignedToken, error) {
	claims, err := a.issuer.Verify(refreshToken, utils.TokenTypeRefresh)
	if err != nil {
		a.log.Debug().Err(err).Msg("refresh rejected")
		return utils.SignedToken{}, ErrUnauthorized
	}
	u, err := a.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.SignedToken{}, ErrUnauthorized
		}
		return utils.SignedToken{}, err
	}
	if !u.IsActive {
		return utils.SignedToken{}, ErrUnauthorized
	}
	return a.issuer.IssueAccess(u.ID, u.Username)
}

// ResetPassword changes a user's password after verifying the current
// one. The new password must satisfy the full policy; violations come
// back as a *utils.PolicyError listing every failed rule.
func (a *Authenticator) ResetPassword(ctx context.Context, username, currentPassword, newPassword, ip string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	u, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, currentPassword) || !u.IsActive {
		return ErrInvalidCredentials
	}

	if err := utils.ValidatePassword(newPassword, a.minLen); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, a.cost)
	if err != nil {
		return err
	}
	if err := a.store.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	a.publish(ctx, queue.AuthEvent{Type: queue.EventPasswordReset, Username: u.Username, UserID: u.ID, IP: ip})
	if a.mail != nil {
		// Best effort: the reset already happened, a lost notification
		// must not fail it.
		if err := a.mail.SendPasswordChanged(ctx, u.Email, u.FullName); err != nil {
			a.log.Warn().Err(err).Msg("password changed notification failed")
		}
	}
	return nil
}

// Profile resolves the current profile for a validated token subject.
func (a *Authenticator) Profile(ctx context.Context, userID uint64) (Profile, error) {
	u, err := a.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, ErrUnauthorized
		}
		return Profile{}, err
	}
	if !u.IsActive {
		return Profile{}, ErrUnauthorized
	}
	return a.profileFor(ctx, u)
}

// AccessTTL exposes the configured access-token lifetime for clients.
func (a *Authenticator) AccessTTL() time.Duration { return a.issuer.AccessTTL() }

func (a *Authenticator) profileFor(ctx context.Context, u model.User) (Profile, error) {
	return assembleProfile(ctx, a.store, u)
}

// grantReader is the slice of the store needed to resolve a user's roles
// and tools.
type grantReader interface {
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
	ToolsForUser(ctx context.Context, userID uint64) ([]model.Tool, error)
}

func assembleProfile(ctx context.Context, store grantReader, u model.User) (Profile, error) {
	roles, err := store.RolesForUser(ctx, u.ID)
	if err != nil {
		return Profile{}, err
	}
	tools, err := store.ToolsForUser(ctx, u.ID)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		ID:        u.ID,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		Roles:     make([]RolePart, 0, len(roles)),
		Tools:     make([]ToolPart, 0, len(tools)),
	}
	for _, role := range roles {
		p.Roles = append(p.Roles, RolePart{ID: role.ID, Name: role.Name, Description: role.Description})
	}
	for _, tool := range tools {
		p.Tools = append(p.Tools, ToolPart{
			ID:          tool.ID,
			Name:        tool.Name,
			DisplayName: tool.DisplayName,
			Description: tool.Description,
			Route:       tool.Route,
			Icon:        tool.Icon,
			IsActive:    tool.IsActive,
		})
	}
	return p, nil
}
