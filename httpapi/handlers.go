package httpapi

import (
	"errors"
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ferdev7/tgauth"
)

type handler struct {
	engine *tgauth.Engine
	logger *zap.Logger
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type codeVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type twoFAVerifyRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *handler) sendCode(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" {
		return detail(c, fiber.StatusBadRequest, "A phone number is required.")
	}

	ctx := tgauth.WithClientIP(c.UserContext(), c.IP())
	if err := h.engine.RequestCode(ctx, req.Phone); err != nil {
		switch {
		case errors.Is(err, tgauth.ErrRateLimited):
			return rateLimited(c, err)
		case errors.Is(err, tgauth.ErrPhoneInvalid):
			return detail(c, fiber.StatusBadRequest, "A phone number is required.")
		default:
			h.logger.Error("send code failed", zap.String("phone", req.Phone), zap.Error(err))
			return detail(c, fiber.StatusBadRequest, "Failed to send verification code.")
		}
	}

	return c.JSON(fiber.Map{"message": "Verification code sent successfully."})
}

func (h *handler) verifyCode(c *fiber.Ctx) error {
	var req codeVerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" || req.Code == "" {
		return detail(c, fiber.StatusBadRequest, "Phone number and code are required.")
	}

	ctx := tgauth.WithClientIP(c.UserContext(), c.IP())
	result, err := h.engine.SubmitCode(ctx, req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, tgauth.ErrRateLimited):
			return rateLimited(c, err)
		case errors.Is(err, tgauth.ErrCodeExpired):
			return detail(c, fiber.StatusBadRequest, "Verification code expired. Request a new one.")
		case errors.Is(err, tgauth.ErrCodeInvalid):
			return detail(c, fiber.StatusBadRequest, "Invalid verification code.")
		default:
			h.logger.Error("verify code failed", zap.String("phone", req.Phone), zap.Error(err))
			return detail(c, fiber.StatusInternalServerError, "Internal server error.")
		}
	}

	if result.TwoFARequired {
		return c.JSON(fiber.Map{"message": "2FA password required"})
	}
	return c.JSON(fiber.Map{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
	})
}

func (h *handler) verify2FA(c *fiber.Ctx) error {
	var req twoFAVerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" || req.Password == "" {
		return detail(c, fiber.StatusBadRequest, "Phone number and password are required.")
	}

	ctx := tgauth.WithClientIP(c.UserContext(), c.IP())
	result, err := h.engine.SubmitPassword(ctx, req.Phone, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, tgauth.ErrRateLimited):
			return rateLimited(c, err)
		case errors.Is(err, tgauth.ErrPasswordInvalid):
			return detail(c, fiber.StatusBadRequest, "Incorrect 2FA password.")
		case errors.Is(err, tgauth.ErrSessionExpired):
			return detail(c, fiber.StatusBadRequest, "Login session expired. Request a new code.")
		default:
			h.logger.Error("verify 2fa failed", zap.String("phone", req.Phone), zap.Error(err))
			return detail(c, fiber.StatusInternalServerError, "Internal server error.")
		}
	}

	return c.JSON(fiber.Map{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
	})
}

func (h *handler) me(c *fiber.Ctx) error {
	phone, _ := c.Locals(phoneLocalKey).(string)
	return c.JSON(fiber.Map{"phone": phone})
}

func (h *handler) health(c *fiber.Ctx) error {
	status := h.engine.Health(c.UserContext())
	if !status.RedisAvailable {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"redis": "unavailable"})
	}
	return c.JSON(fiber.Map{
		"redis":            "ok",
		"redis_latency_ms": status.RedisLatency.Milliseconds(),
	})
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}

func rateLimited(c *fiber.Ctx, err error) error {
	var limited *tgauth.RateLimitError
	retryAfter := 60
	if errors.As(err, &limited) {
		retryAfter = int(math.Ceil(limited.RetryAfter.Seconds()))
	}
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"detail":              fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfter),
		"retry_after_seconds": retryAfter,
	})
}
