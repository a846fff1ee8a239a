// Command tgauthd serves the phone login flow over HTTP. It wires Redis,
// Postgres, and the provider gateway into a tgauth Engine and mounts the
// httpapi routes.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ferdev7/tgauth"
	"github.com/ferdev7/tgauth/gateway"
	"github.com/ferdev7/tgauth/httpapi"
	"github.com/ferdev7/tgauth/internal/config"
	"github.com/ferdev7/tgauth/userstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Fatal("redis ping failed", zap.Error(err))
	}

	pool, err := userstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()

	users := userstore.NewPostgres(pool)
	if err := users.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema bootstrap failed", zap.Error(err))
	}

	gw, err := buildGateway(cfg, logger)
	if err != nil {
		logger.Fatal("gateway setup failed", zap.Error(err))
	}

	vaultKey, err := cfg.VaultKey()
	if err != nil {
		logger.Fatal("vault key invalid", zap.Error(err))
	}

	engineCfg := tgauth.Config{
		Login: tgauth.LoginConfig{
			CodeHashTTL: 300 * time.Second,
			SessionTTL:  24 * time.Hour,
		},
		Provider: tgauth.ProviderConfig{
			CallTimeout: 30 * time.Second,
		},
		JWT: tgauth.JWTConfig{
			AccessTTL: cfg.AccessTTL(),
			Secret:    []byte(cfg.SecretKey),
			Issuer:    "tgauth",
		},
		Vault: tgauth.VaultConfig{
			Key: vaultKey,
		},
		RateLimit: tgauth.RateLimitConfig{
			Enabled:           true,
			Window:            time.Minute,
			MaxSendCode:       5,
			MaxSubmitCode:     10,
			MaxSubmitPassword: 5,
		},
	}

	engine, err := tgauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithGateway(gw).
		WithUserStore(users).
		Build()
	if err != nil {
		logger.Fatal("engine build failed", zap.Error(err))
	}

	app := httpapi.New(httpapi.Config{
		AllowOrigins: cfg.CORSOrigins,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}, engine, logger)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// buildGateway selects the provider gateway. Production deployments register
// an MTProto-backed implementation of gateway.Gateway; outside production the
// in-process dev gateway can stand in so the flow is exercisable end to end.
func buildGateway(cfg *config.Config, logger *zap.Logger) (gateway.Gateway, error) {
	if cfg.DevLoginCode != "" {
		logger.Warn("using dev gateway; no provider will be contacted")
		return gateway.NewDev(cfg.DevLoginCode, cfg.DevLoginPassword, cfg.TwoFAPhones()), nil
	}
	return nil, errNoGateway
}

var errNoGateway = errors.New("no provider gateway configured; set DEV_LOGIN_CODE for the dev gateway or wire a provider implementation")
