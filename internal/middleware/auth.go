package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the admin key; "Authorization: Bearer <key>" is
// accepted as well.
const APIKeyHeader = "X-API-Key"

// AdminOnly guards admin routes with a shared key. An empty adminKey
// disables the routes entirely.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.With("auth")

		if adminKey == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Not found",
			})
		}

		apiKey := c.Get(APIKeyHeader)
		if apiKey == "" {
			apiKey = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if apiKey == "" {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Admin access attempt without API key")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminKey)) != 1 {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}
