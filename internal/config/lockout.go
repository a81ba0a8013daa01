package config

import (
	"os"
	"strconv"
	"time"
)

// LockoutConfig controls the brute-force counter applied to login
// attempts. Failures for the same username+IP within Window are counted;
// once MaxAttempts is reached further logins for that key are rejected
// until the window lapses. When Enabled is false or no Redis client is
// available the limiter is permissive.
type LockoutConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// LoadLockoutConfig reads lockout settings from the environment, clamping
// nonsense values to workable ones.
func LoadLockoutConfig() LockoutConfig {
	cfg := LockoutConfig{
		Enabled:     envBool("LOCKOUT_ENABLED", true),
		MaxAttempts: envInt("LOCKOUT_MAX_ATTEMPTS", 5),
		Window:      envDur("LOCKOUT_WINDOW", 15*time.Minute),
		Prefix:      envStr("LOCKOUT_PREFIX", "lockout"),
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Window < time.Minute {
		cfg.Window = time.Minute
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
