package tgauth

import (
	"errors"
	"time"
)

// Config defines a public type used by tgauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Login     LoginConfig
	Provider  ProviderConfig
	JWT       JWTConfig
	Vault     VaultConfig
	RateLimit RateLimitConfig
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig defines a public type used by tgauth APIs.
//
// LoginConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginConfig struct {
	// CodeHashTTL bounds the window in which a delivered code can be redeemed.
	CodeHashTTL time.Duration
	// SessionTTL bounds the in-flight provider session blob. Must outlive
	// CodeHashTTL so the session is still resumable when the code arrives late.
	SessionTTL time.Duration
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig defines a public type used by tgauth APIs.
//
// ProviderConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProviderConfig struct {
	// CallTimeout is applied to every gateway call. Gateway calls are the
	// dominant latency source and must never block a request indefinitely.
	CallTimeout time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by tgauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL time.Duration
	Secret    []byte
	Issuer    string
}

/*
====================================
VAULT CONFIG
====================================
*/

// VaultConfig defines a public type used by tgauth APIs.
//
// VaultConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VaultConfig struct {
	// Key is the AES-256 key the credential vault seals session blobs with.
	Key []byte
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by tgauth APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled           bool
	Window            time.Duration
	MaxSendCode       int
	MaxSubmitCode     int
	MaxSubmitPassword int
}

func defaultConfig() Config {
	return Config{
		Login: LoginConfig{
			CodeHashTTL: 300 * time.Second,
			SessionTTL:  24 * time.Hour,
		},
		Provider: ProviderConfig{
			CallTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL: 30 * time.Minute,
			Issuer:    "tgauth",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Window:            time.Minute,
			MaxSendCode:       5,
			MaxSubmitCode:     10,
			MaxSubmitPassword: 5,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	out.Vault.Key = append([]byte(nil), cfg.Vault.Key...)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.Login.CodeHashTTL <= 0 {
		return errors.New("login code hash TTL must be positive")
	}
	if cfg.Login.SessionTTL <= cfg.Login.CodeHashTTL {
		return errors.New("login session TTL must outlive the code hash TTL")
	}
	if cfg.Provider.CallTimeout <= 0 {
		return errors.New("provider call timeout must be positive")
	}
	if cfg.JWT.AccessTTL <= 0 {
		return errors.New("jwt access TTL must be positive")
	}
	if len(cfg.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if len(cfg.Vault.Key) != 32 {
		return errors.New("vault key must be exactly 32 bytes")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
		if cfg.RateLimit.MaxSendCode <= 0 || cfg.RateLimit.MaxSubmitCode <= 0 || cfg.RateLimit.MaxSubmitPassword <= 0 {
			return errors.New("rate limit budgets must be positive")
		}
	}
	return nil
}
