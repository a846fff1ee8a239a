package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const phoneLocalKey = "tgauth_phone"

// requireBearer rejects requests without a valid bearer token and stores the
// authenticated phone number in the request locals for downstream handlers.
func (h *handler) requireBearer(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Not authenticated.")
	}

	phone, err := h.engine.Authenticate(token)
	if err != nil {
		return detail(c, fiber.StatusUnauthorized, "Invalid or expired token.")
	}

	c.Locals(phoneLocalKey, phone)
	return c.Next()
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
