// Package ratelimit throttles failed logins with Redis fixed-window counters.
//
// Keys: "ats:login:e:<email>" per account and "ats:login:ip:<ip>" per client address.
// A window starts on the first failed attempt (INCR + EXPIRE NX in one MULTI) and lasts Cooldown.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrTooManyAttempts is returned when the failed-login budget for the window is spent.
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "ats:login:"

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// LoginLimiter counts failed logins per email and per IP.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a LoginLimiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *LoginLimiter {
	return &LoginLimiter{redis: client, config: cfg}
}

// Check returns ErrTooManyAttempts if either the email or the IP has used up its budget.
// It does not count as an attempt.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		n, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if n >= int64(l.config.MaxAttempts) {
			return ErrTooManyAttempts
		}
	}
	return nil
}

// RecordFailure counts one failed attempt for the email and IP.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		if _, err := l.incrementWithTTL(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the email counter after a successful login. The IP counter is kept so one
// good account cannot launder attempts against others from the same address.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (l *LoginLimiter) Ping(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

func (l *LoginLimiter) keys(email, ip string) []string {
	keys := make([]string, 0, 2)
	if email != "" {
		keys = append(keys, emailKey(email))
	}
	if ip != "" {
		keys = append(keys, ipKey(ip))
	}
	return keys
}

// incrementWithTTL bumps key and starts its window in one MULTI. EXPIRE NX leaves a running window
// alone, so a key can never be left counting without a TTL.
func (l *LoginLimiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.config.Cooldown)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func emailKey(email string) string { return keyPrefix + "e:" + email }
func ipKey(ip string) string       { return keyPrefix + "ip:" + ip }
