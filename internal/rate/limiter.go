package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Window            time.Duration
	MaxSendCode       int
	MaxSubmitCode     int
	MaxSubmitPassword int
}

// Limiter enforces per-client-address budgets for each login step using
// Redis counters. It is independent of the login state machine's own step
// ordering and of provider-side flood control.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func sendCodeKey(addr string) string {
	return "rl:sc:" + addr
}

func submitCodeKey(addr string) string {
	return "rl:vc:" + addr
}

func submitPasswordKey(addr string) string {
	return "rl:vp:" + addr
}

// AllowSendCode counts a send-code request for the address and returns a
// *CooldownError once the window budget is exhausted. An empty address
// disables the check for callers without client address context.
func (l *Limiter) AllowSendCode(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	return l.allow(ctx, sendCodeKey(addr), l.config.MaxSendCode)
}

// AllowSubmitCode counts a verify-code request for the address and returns a
// *CooldownError once the window budget is exhausted.
func (l *Limiter) AllowSubmitCode(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	return l.allow(ctx, submitCodeKey(addr), l.config.MaxSubmitCode)
}

// AllowSubmitPassword counts a verify-password request for the address and
// returns a *CooldownError once the window budget is exhausted.
func (l *Limiter) AllowSubmitPassword(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	return l.allow(ctx, submitPasswordKey(addr), l.config.MaxSubmitPassword)
}

func (l *Limiter) allow(ctx context.Context, key string, max int) error {
	count, err := l.incrementWithTTL(ctx, key, l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(max) {
		retryAfter, err := l.redis.TTL(ctx, key).Result()
		if err != nil || retryAfter <= 0 {
			retryAfter = l.config.Window
		}
		return &CooldownError{RetryAfter: retryAfter}
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
