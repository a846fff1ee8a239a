package tgauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ferdev7/tgauth/gateway"
	"github.com/ferdev7/tgauth/internal/rate"
	"github.com/ferdev7/tgauth/jwt"
	"github.com/ferdev7/tgauth/vault"
)

// Builder defines a public type used by tgauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	gateway   gateway.Gateway
	userStore UserStore

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithGateway describes the withgateway operation and its observable behavior.
//
// WithGateway may return an error when input validation, dependency calls, or security checks fail.
// WithGateway does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithGateway(gw gateway.Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithUserStore describes the withuserstore operation and its observable behavior.
//
// WithUserStore may return an error when input validation, dependency calls, or security checks fail.
// WithUserStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.gateway == nil {
		return nil, errors.New("provider gateway is required")
	}
	if b.userStore == nil {
		return nil, errors.New("user store is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	credVault, err := vault.New(b.config.Vault.Key)
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL: b.config.JWT.AccessTTL,
		Secret:    b.config.JWT.Secret,
		Issuer:    b.config.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.config.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			Window:            b.config.RateLimit.Window,
			MaxSendCode:       b.config.RateLimit.MaxSendCode,
			MaxSubmitCode:     b.config.RateLimit.MaxSubmitCode,
			MaxSubmitPassword: b.config.RateLimit.MaxSubmitPassword,
		})
	}

	b.built = true
	return &Engine{
		config:      b.config,
		gateway:     b.gateway,
		attempts:    newLoginAttemptStore(b.redis),
		rateLimiter: limiter,
		vault:       credVault,
		jwtManager:  jwtManager,
		users:       b.userStore,
	}, nil
}
