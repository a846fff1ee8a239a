package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is an exported constant or variable used by the login engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is an exported constant or variable used by the login engine.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// CooldownError reports a breached budget and the remaining window. It
// matches [ErrRateLimited] under errors.Is.
type CooldownError struct {
	RetryAfter time.Duration
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Is describes the is operation and its observable behavior.
//
// Is does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *CooldownError) Is(target error) bool {
	return target == ErrRateLimited
}
