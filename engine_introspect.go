package tgauth

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Authenticate verifies a bearer token previously issued by this engine and
// returns the phone number it was issued to.
func (e *Engine) Authenticate(token string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if token == "" {
		return "", ErrTokenInvalid
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.Subject, nil
}

// Health describes the health operation and its observable behavior.
//
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Health probes the transient step store. The durable user store is owned by
// the caller and probed separately.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.attempts == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.attempts.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   time.Since(start),
	}
}
