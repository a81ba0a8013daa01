package queue

import "time"

// AuditQueueName is the durable queue carrying auth and admin audit
// events.
const AuditQueueName = "auth.audit"

// Event types published to the audit queue.
const (
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventLockout       = "lockout"
	EventPasswordReset = "password_reset"
	EventLogout        = "logout"
	EventUserCreated   = "user_created"
	EventUserUpdated   = "user_updated"
	EventUserDeleted   = "user_deleted"
)

// AuthEvent is the payload published for every audited action. Username
// may be empty for failures against unknown accounts only when the
// attempted name itself should not be recorded; passwords and hashes are
// never part of an event.
type AuthEvent struct {
	Type     string    `json:"type"`
	Username string    `json:"username,omitempty"`
	UserID   uint64    `json:"user_id,omitempty"`
	IP       string    `json:"ip,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}
