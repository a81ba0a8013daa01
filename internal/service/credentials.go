package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/acidash/dashboard-api/internal/model"
)

// DirectoryStore is the slice of the credential store the notifier needs
// to enumerate users and resolve their grants.
type DirectoryStore interface {
	List(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
	ToolsForUser(ctx context.Context, userID uint64) ([]model.Tool, error)
}

// NotifyReport summarizes a bulk credential mailing.
type NotifyReport struct {
	Total  int `json:"total_users"`
	Sent   int `json:"successful_sends"`
	Failed int `json:"failed_sends"`
}

// CredentialNotifier mails users their account information on request of
// an administrator. Messages carry username, roles, tools and the login
// URL; never a password.
type CredentialNotifier struct {
	store DirectoryStore
	mail  Mailer
	log   zerolog.Logger
}

func NewCredentialNotifier(store DirectoryStore, mail Mailer, log zerolog.Logger) *CredentialNotifier {
	return &CredentialNotifier{store: store, mail: mail, log: log}
}

// NotifyAll mails account information to every user. One failed send is
// counted, not fatal; the report says how far the batch got.
func (n *CredentialNotifier) NotifyAll(ctx context.Context) (NotifyReport, error) {
	users, err := n.store.List(ctx)
	if err != nil {
		return NotifyReport{}, err
	}
	report := NotifyReport{Total: len(users)}
	for _, u := range users {
		if err := n.notify(ctx, u); err != nil {
			n.log.Warn().Err(err).Str("username", u.Username).Msg("credential mail failed")
			report.Failed++
			continue
		}
		report.Sent++
	}
	return report, nil
}

// NotifyUser mails account information to one user. A missing user
// surfaces as the store's repository.ErrNotFound.
func (n *CredentialNotifier) NotifyUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := n.store.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := n.notify(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (n *CredentialNotifier) notify(ctx context.Context, u model.User) error {
	p, err := assembleProfile(ctx, n.store, u)
	if err != nil {
		return err
	}
	return n.mail.SendAccountInfo(ctx, p)
}
