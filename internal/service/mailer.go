package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/acidash/dashboard-api/internal/config"
)

// Mailer delivers account notifications. Implementations never include a
// password, current or temporary, in a message body.
type Mailer interface {
	SendAccountInfo(ctx context.Context, p Profile) error
	SendPasswordChanged(ctx context.Context, email, fullName string) error
}

// SMTPMailer sends notification mail over SMTP. Without a configured
// SMTP account it runs in simulation mode: each send is logged and
// reported as successful, so environments without a mail relay keep
// working end to end.
type SMTPMailer struct {
	cfg config.MailConfig
	log zerolog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

// SendAccountInfo mails a user their username, assigned roles and tools,
// and the login URL. Passwords are never included; a user who forgot
// theirs is pointed at the reset flow.
func (m *SMTPMailer) SendAccountInfo(ctx context.Context, p Profile) error {
	loginURL := m.cfg.FrontendURL + "/login"

	roleNames := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roleNames = append(roleNames, strings.ToUpper(strings.ReplaceAll(r.Name, "_", " ")))
	}
	toolNames := make([]string, 0, len(p.Tools))
	for _, t := range p.Tools {
		toolNames = append(toolNames, t.DisplayName)
	}

	text := fmt.Sprintf(`Hello %s,

Here is your current dashboard account information.

Username: %s
Password: your current password (use the reset flow if you forgot it)
Login URL: %s

Assigned roles: %s
Available tools: %s

Keep your credentials secure and do not share them.
This is an automated email. Please do not reply.
`, p.FullName, p.Username, loginURL, listOr(roleNames, "none"), listOr(toolNames, "none"))

	html := fmt.Sprintf(`<html><body>
<h2>Your Account Information</h2>
<p>Hello %s,</p>
<p>Here is your current dashboard account information.</p>
<ul>
<li><strong>Username:</strong> %s</li>
<li><strong>Password:</strong> your current password (use the reset flow if you forgot it)</li>
<li><strong>Login URL:</strong> <a href="%s">%s</a></li>
</ul>
<p><strong>Assigned roles:</strong> %s<br>
<strong>Available tools:</strong> %s</p>
<p>Keep your credentials secure and do not share them.<br>
This is an automated email. Please do not reply.</p>
</body></html>`, p.FullName, p.Username, loginURL, loginURL,
		listOr(roleNames, "none"), listOr(toolNames, "none"))

	return m.send(ctx, p.Email, "Dashboard - Your Account Information", text, html)
}

// SendPasswordChanged notifies a user that their password was changed.
func (m *SMTPMailer) SendPasswordChanged(ctx context.Context, email, fullName string) error {
	text := fmt.Sprintf(`Hello %s,

Your dashboard password has been changed.

If you did not make this change, contact your administrator immediately.
This is an automated email. Please do not reply.
`, fullName)

	html := fmt.Sprintf(`<html><body>
<h2>Password Changed</h2>
<p>Hello %s,</p>
<p>Your dashboard password has been changed.</p>
<p>If you did not make this change, contact your administrator immediately.<br>
This is an automated email. Please do not reply.</p>
</body></html>`, fullName)

	return m.send(ctx, email, "Dashboard - Password Changed", text, html)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, text, html string) error {
	if !m.cfg.Configured() {
		m.log.Info().Str("to", to).Str("subject", subject).
			Msg("mail simulation: no SMTP account configured")
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

func listOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
