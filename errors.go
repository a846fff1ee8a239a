package tgauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPhoneInvalid is an exported constant or variable used by the login engine.
	ErrPhoneInvalid = errors.New("invalid phone number")
	// ErrRateLimited is an exported constant or variable used by the login engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrCodeExpired is an exported constant or variable used by the login engine.
	ErrCodeExpired = errors.New("verification code expired or not requested")
	// ErrCodeInvalid is an exported constant or variable used by the login engine.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrSessionExpired is an exported constant or variable used by the login engine.
	ErrSessionExpired = errors.New("login session expired or not found")
	// ErrPasswordInvalid is an exported constant or variable used by the login engine.
	ErrPasswordInvalid = errors.New("invalid two-factor password")
	// ErrStateInconsistent is an exported constant or variable used by the login engine.
	ErrStateInconsistent = errors.New("login attempt state inconsistent")
	// ErrProviderUnavailable is an exported constant or variable used by the login engine.
	ErrProviderUnavailable = errors.New("provider login call failed")
	// ErrPersistence is an exported constant or variable used by the login engine.
	ErrPersistence = errors.New("credential persistence failed")
	// ErrTokenIssue is an exported constant or variable used by the login engine.
	ErrTokenIssue = errors.New("access token issuance failed")
	// ErrTokenInvalid is an exported constant or variable used by the login engine.
	ErrTokenInvalid = errors.New("invalid or expired access token")
	// ErrStoreUnavailable is an exported constant or variable used by the login engine.
	ErrStoreUnavailable = errors.New("attempt store backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the login engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a breached cooldown together with the time the
// caller must wait before retrying. Provider distinguishes the remote
// flood-wait signal from the engine's own per-address limiter.
type RateLimitError struct {
	RetryAfter time.Duration
	Provider   bool
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *RateLimitError) Error() string {
	if e.Provider {
		return fmt.Sprintf("provider flood wait: retry after %s", e.RetryAfter)
	}
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Is describes the is operation and its observable behavior.
//
// Is does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
