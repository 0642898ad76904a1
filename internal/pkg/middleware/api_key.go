package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// APIKeyAuthMiddleware guards the management API with the shared key from
// API_SHARED_KEY. An empty key leaves the API open, which is only
// acceptable for local development.
func APIKeyAuthMiddleware() fiber.Handler {
	sharedKey := env.GetEnv("API_SHARED_KEY", "")
	if sharedKey == "" {
		log.Warn("[Middleware] API_SHARED_KEY is not set, management API is unauthenticated")
	}

	return func(c *fiber.Ctx) error {
		if sharedKey == "" {
			return c.Next()
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(sharedKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
