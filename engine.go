package tgauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ferdev7/tgauth/gateway"
	"github.com/ferdev7/tgauth/internal/rate"
	"github.com/ferdev7/tgauth/jwt"
	"github.com/ferdev7/tgauth/vault"
)

// Engine defines a public type used by tgauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	gateway     gateway.Gateway
	attempts    *loginAttemptStore
	rateLimiter *rate.Limiter
	vault       *vault.Vault
	jwtManager  *jwt.Manager
	users       UserStore
}

// providerCall bounds a gateway call. Gateway calls are blocking network
// operations with no retries; the caller resubmits the step on timeout.
func (e *Engine) providerCall(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Provider.CallTimeout)
}

func (e *Engine) limiterError(err error) error {
	var cooldown *rate.CooldownError
	if errors.As(err, &cooldown) {
		return &RateLimitError{RetryAfter: cooldown.RetryAfter}
	}
	// Fail closed when the limiter backend is unreachable.
	return &RateLimitError{RetryAfter: e.config.RateLimit.Window}
}

func translateGatewayError(err error) error {
	var floodWait *gateway.FloodWaitError
	if errors.As(err, &floodWait) {
		return &RateLimitError{RetryAfter: floodWait.RetryAfter, Provider: true}
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func nowUnix() int64 {
	return time.Now().Unix()
}
