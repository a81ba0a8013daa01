package config

// MailConfig holds the SMTP settings for outbound notification mail.
// Username and Password empty means no SMTP account is configured; the
// mailer then runs in simulation mode and only logs what it would send.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// LoadMailConfig reads SMTP settings from the environment.
func LoadMailConfig() MailConfig {
	cfg := MailConfig{
		Host:        envStr("SMTP_HOST", "localhost"),
		Port:        envInt("SMTP_PORT", 587),
		Username:    envStr("SMTP_USERNAME", ""),
		Password:    envStr("SMTP_PASSWORD", ""),
		From:        envStr("FROM_EMAIL", ""),
		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return cfg
}

// Configured reports whether real SMTP delivery is possible.
func (c MailConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}
