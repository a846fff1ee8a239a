package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/ferdev7/tgauth"
)

// Config defines a public type used by tgauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// AllowOrigins is the comma-separated CORS origin list.
	AllowOrigins string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New initializes the Fiber application with middlewares and auth routes.
func New(cfg Config, engine *tgauth.Engine, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
	}))
	app.Use(requestLogger(logger))

	h := &handler{engine: engine, logger: logger}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "tgauth service is running"})
	})
	app.Get("/healthz", h.health)

	auth := app.Group("/api/auth")
	auth.Post("/send-code", h.sendCode)
	auth.Post("/verify-code", h.verifyCode)
	auth.Post("/verify-2fa", h.verify2FA)
	auth.Get("/me", h.requireBearer, h.me)

	return app
}

// requestLogger logs incoming HTTP requests using zap.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}

		if err != nil {
			logger.Error("http request error", append(fields, zap.Error(err))...)
			return err
		}

		logger.Info("http request", fields...)
		return nil
	}
}
