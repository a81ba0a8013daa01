package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acidash/dashboard-api/internal/config"
)

// LoginLimiter bounds failed login attempts per principal. Implementations
// must fail open: an unavailable counter should never lock everyone out.
type LoginLimiter interface {
	Blocked(ctx context.Context, username, ip string) bool
	RecordFailure(ctx context.Context, username, ip string)
	Clear(ctx context.Context, username, ip string)
}

// failureScript increments the attempt counter atomically and starts the
// window on the first failure, so the expiry cannot be lost between an
// INCR and a separate EXPIRE.
var failureScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

// RedisLockout counts failures keyed by username+IP in a fixed window.
// With a nil client or Enabled=false every check is permissive.
type RedisLockout struct {
	cfg config.LockoutConfig
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisLockout(cfg config.LockoutConfig, rdb *redis.Client, log zerolog.Logger) *RedisLockout {
	return &RedisLockout{cfg: cfg, rdb: rdb, log: log}
}

func (l *RedisLockout) key(username, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{l.cfg.Prefix, strings.ToLower(username), ip}, ":")
}

func (l *RedisLockout) enabled() bool { return l.cfg.Enabled && l.rdb != nil }

// Blocked reports whether the key has reached the attempt limit.
func (l *RedisLockout) Blocked(ctx context.Context, username, ip string) bool {
	if !l.enabled() {
		return false
	}
	count, err := l.rdb.Get(ctx, l.key(username, ip)).Int()
	if err != nil {
		if err != redis.Nil {
			l.log.Warn().Err(err).Msg("lockout: read failed, failing open")
		}
		return false
	}
	return count >= l.cfg.MaxAttempts
}

// RecordFailure counts one failed attempt against the key.
func (l *RedisLockout) RecordFailure(ctx context.Context, username, ip string) {
	if !l.enabled() {
		return
	}
	key := l.key(username, ip)
	count, err := failureScript.Run(ctx, l.rdb, []string{key}, l.cfg.Window.Milliseconds()).Int()
	if err != nil {
		l.log.Warn().Err(err).Msg("lockout: record failed")
		return
	}
	if count == l.cfg.MaxAttempts {
		l.log.Info().Str("key", fmt.Sprintf("%s:*", l.cfg.Prefix)).Msg("lockout threshold reached")
	}
}

// Clear resets the counter after a successful login.
func (l *RedisLockout) Clear(ctx context.Context, username, ip string) {
	if !l.enabled() {
		return
	}
	if err := l.rdb.Del(ctx, l.key(username, ip)).Err(); err != nil {
		l.log.Warn().Err(err).Msg("lockout: clear failed")
	}
}
