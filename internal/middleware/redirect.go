package middleware

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CanonicalHost permanently redirects "www.<host>" to host, keeping any
// port, the path and the query. An empty host disables the redirect.
func CanonicalHost(host string) fiber.Handler {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	return func(c *fiber.Ctx) error {
		if host == "" {
			return c.Next()
		}

		requested := strings.ToLower(c.Hostname())
		name := requested
		if h, _, err := net.SplitHostPort(requested); err == nil {
			name = h
		}
		if name != "www."+host {
			return c.Next()
		}

		target := c.Protocol() + "://" + strings.TrimPrefix(requested, "www.") + c.OriginalURL()
		return c.Redirect(target, fiber.StatusMovedPermanently)
	}
}
