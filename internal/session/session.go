// Package session is the client-side custodian of the current token pair
// and cached profile. Dashboard clients (the web UI's API layer, CLI
// tooling) keep exactly one Manager and route every session read and
// write through it instead of scattering ad hoc key-value lookups.
//
// Per client the session moves through a fixed cycle: Anonymous →
// Active → ExpiringSoon (renew via refresh) → back to Anonymous on
// logout, refresh failure or invalidation. There is no other state; a
// locked-out or deactivated account is indistinguishable from Anonymous
// on the client.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acidash/dashboard-api/internal/service"
)

// ExpirySafetyBuffer is subtracted from a token's real expiry when
// checking it locally, so a token is treated as expired slightly early
// rather than racing in-flight requests against the server clock.
const ExpirySafetyBuffer = 30 * time.Second

var errCorruptSession = errors.New("corrupt session snapshot")

// RenewWindow is how close to session expiry the state flips to
// ExpiringSoon, signalling the client to exchange its refresh token.
const RenewWindow = 5 * time.Minute

// State of the client session.
type State int

const (
	Anonymous State = iota
	Active
	ExpiringSoon
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case ExpiringSoon:
		return "expiring_soon"
	default:
		return "anonymous"
	}
}

// Data is the persisted shape of a session.
type Data struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Profile      service.Profile `json:"profile"`
	LoginAt      time.Time       `json:"login_at"`
}

// Manager holds the current session. All methods are safe for concurrent
// use. The zero value is not usable; construct with NewManager.
type Manager struct {
	mu        sync.Mutex
	data      *Data
	accessTTL time.Duration
	now       func() time.Time
}

// NewManager builds a session manager mirroring the server's access-token
// lifetime, so the client can proactively drop a stale session instead of
// waiting for a 401.
func NewManager(accessTTL time.Duration) *Manager {
	return &Manager{accessTTL: accessTTL, now: time.Now}
}

// Save installs a fresh session after login. Any previous session is
// replaced wholesale.
func (m *Manager) Save(accessToken, refreshToken string, profile service.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = &Data{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile:      profile,
		LoginAt:      m.now().UTC(),
	}
}

// UpdateAccessToken swaps in a new access token after a refresh without
// touching the rest of the session. LoginAt advances: the session clock
// restarts with the new token.
func (m *Manager) UpdateAccessToken(accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return
	}
	m.data.AccessToken = accessToken
	m.data.LoginAt = m.now().UTC()
}

// Clear drops token, profile and timestamps in one operation. Used on
// logout and whenever a cached session turns out to be unusable.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
}

// Valid reports whether a usable session exists: one was saved, its age
// is inside the access-token lifetime, and its token does not decode as
// already expired. On success the current Data copy is returned.
func (m *Manager) Valid() (bool, Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return false, Data{}
	}
	if m.now().Sub(m.data.LoginAt) >= m.accessTTL {
		return false, Data{}
	}
	if tokenExpiredAt(m.data.AccessToken, m.now()) {
		return false, Data{}
	}
	return true, *m.data
}

// State classifies the session for UI routing decisions.
func (m *Manager) State() State {
	ok, data := m.Valid()
	if !ok {
		return Anonymous
	}
	remaining := m.accessTTL - m.now().Sub(data.LoginAt)
	if remaining <= RenewWindow {
		return ExpiringSoon
	}
	return Active
}

// Snapshot serializes the session for persistence between client runs.
// Returns nil when no session is active.
func (m *Manager) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	raw, err := json.Marshal(m.data)
	if err != nil {
		return nil
	}
	return raw
}

// Restore loads a previously snapshotted session. A corrupt or
// unparseable snapshot clears the session entirely rather than leaving a
// half-restored one behind.
func (m *Manager) Restore(raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		m.data = nil
		return err
	}
	if data.AccessToken == "" || data.LoginAt.IsZero() {
		m.data = nil
		return errCorruptSession
	}
	m.data = &data
	return nil
}

// TokenExpired decodes the token's expiry claim locally, without
// verifying the signature, and compares it against now minus the safety
// buffer. Signature verification is the server's job; the client only
// needs the timestamp to avoid sending requests doomed to 401.
func TokenExpired(token string) bool {
	return tokenExpiredAt(token, time.Now())
}

func tokenExpiredAt(token string, now time.Time) bool {
	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !now.Before(exp.Time.Add(-ExpirySafetyBuffer))
}
