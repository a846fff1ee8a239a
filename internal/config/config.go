// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ListenAddr is the address the HTTP server listens on (e.g. :8000).
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	// DatabaseURL is the Postgres DSN for the durable user credential store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port for transient login state.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database index.
	RedisDB int `mapstructure:"REDIS_DB"`
	// TelegramAPIID identifies the application to the provider.
	TelegramAPIID int `mapstructure:"TELEGRAM_API_ID"`
	// TelegramAPIHash authenticates the application to the provider.
	TelegramAPIHash string `mapstructure:"TELEGRAM_API_HASH"`
	// SecretKey signs bearer tokens (HS256); at least 32 bytes.
	SecretKey string `mapstructure:"SECRET_KEY"`
	// EncryptionKey is the base64-encoded 32-byte AES key for the credential vault.
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	// AccessTokenExpireMinutes is the bearer token lifetime in minutes.
	AccessTokenExpireMinutes int `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	// CORSOrigins is the comma-separated allowed origin list.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// DevLoginCode enables the in-process dev gateway with this accepted
	// code. Must be empty when Env is production.
	DevLoginCode string `mapstructure:"DEV_LOGIN_CODE"`
	// DevLoginPassword is the two-factor password the dev gateway accepts.
	DevLoginPassword string `mapstructure:"DEV_LOGIN_PASSWORD"`
	// DevTwoFAPhones is a comma-separated list of phones the dev gateway
	// treats as two-factor protected.
	DevTwoFAPhones string `mapstructure:"DEV_TWO_FA_PHONES"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal;
	// every key needs a default or an explicit binding.
	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TELEGRAM_API_ID", 0)
	v.SetDefault("TELEGRAM_API_HASH", "")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DEV_LOGIN_CODE", "")
	v.SetDefault("DEV_LOGIN_PASSWORD", "")
	v.SetDefault("DEV_TWO_FA_PHONES", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if len(cfg.SecretKey) < 32 {
		return nil, errors.New("config: SECRET_KEY must be at least 32 bytes")
	}
	if _, err := cfg.VaultKey(); err != nil {
		return nil, err
	}
	if cfg.AccessTokenExpireMinutes <= 0 {
		return nil, errors.New("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if cfg.DevLoginCode != "" && cfg.Env == "production" {
		return nil, errors.New("config: DEV_LOGIN_CODE must not be set when APP_ENV=production")
	}

	return &cfg, nil
}

// AccessTTL returns the bearer token lifetime as a duration.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// VaultKey decodes the base64 encryption key and enforces its length.
func (c *Config) VaultKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, errors.New("config: ENCRYPTION_KEY must be base64")
	}
	if len(key) != 32 {
		return nil, errors.New("config: ENCRYPTION_KEY must decode to 32 bytes")
	}
	return key, nil
}

// TwoFAPhones splits the comma-separated dev two-factor phone list.
func (c *Config) TwoFAPhones() []string {
	if c.DevTwoFAPhones == "" {
		return nil
	}
	parts := strings.Split(c.DevTwoFAPhones, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
