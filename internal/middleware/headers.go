package middleware

import (
	"fmt"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	oneHour = 3600
	oneDay  = 86400
	oneWeek = 604800
	oneYear = 31536000
)

var securityHeaders = map[string]string{
	"X-DNS-Prefetch-Control":    "on",
	"Strict-Transport-Security": "max-age=63072000; includeSubDomains; preload",
	"X-XSS-Protection":          "1; mode=block",
	"X-Frame-Options":           "SAMEORIGIN",
	"X-Content-Type-Options":    "nosniff",
	"Referrer-Policy":           "origin-when-cross-origin",
	"Priority-Hints":            "on",
}

// ContentSecurityPolicy allows images from Notion and S3 besides self.
const ContentSecurityPolicy = "default-src 'self'; " +
	"img-src 'self' data: *.amazonaws.com *.notion.so https://www.google-analytics.com https://*.googletagmanager.com; " +
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://*.googletagmanager.com https://www.google-analytics.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"font-src 'self' https://fonts.googleapis.com https://fonts.gstatic.com; " +
	"connect-src 'self' https://www.google-analytics.com https://*.googletagmanager.com https://fonts.googleapis.com https://fonts.gstatic.com"

// Preloads sent on every response, plus extras for the home page.
var (
	GlobalResources = []string{
		"</_next/static/css/app.css>; rel=preload; as=style; fetchpriority=high",
		"</_next/static/css/main.css>; rel=preload; as=style; fetchpriority=high",
		"</_next/static/chunks/main.js>; rel=preload; as=script; fetchpriority=high",
		"</_next/static/chunks/pages/_app.js>; rel=preload; as=script; fetchpriority=high",
	}
	HomeResources = []string{
		"</pfp.webp>; rel=preload; as=image; fetchpriority=high",
		"</_next/static/chunks/structured-data.js>; rel=preload; as=script; fetchpriority=high",
	}
)

var excludedPaths = []string{"_next/static", "_next/image", "favicon.ico", ".png", ".jpg", ".svg"}

// Skip reports whether a path bypasses the header and logging chain.
func Skip(p string) bool {
	for _, ex := range excludedPaths {
		if strings.Contains(p, ex) {
			return true
		}
	}
	return false
}

// SecurityHeaders sets the fixed security headers and the CSP.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Skip(c.Path()) {
			return c.Next()
		}
		for k, v := range securityHeaders {
			c.Set(k, v)
		}
		c.Set(fiber.HeaderContentSecurityPolicy, ContentSecurityPolicy)
		return c.Next()
	}
}

// CacheControlFor picks the default Cache-Control for a path by extension.
func CacheControlFor(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".woff2":
		return fmt.Sprintf("public, max-age=%d, immutable", oneYear)
	case ".jpg", ".jpeg", ".png", ".webp", ".svg", ".ico":
		return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", oneDay, oneWeek)
	default:
		return fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d", oneHour, oneDay, oneWeek)
	}
}

// CacheHeaders sets a default Cache-Control before the handler runs, so a
// handler setting its own wins.
func CacheHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Skip(c.Path()) {
			return c.Next()
		}
		c.Set(fiber.HeaderCacheControl, CacheControlFor(c.Path()))
		return c.Next()
	}
}

// ResourceHints advertises critical resources in a Link header.
func ResourceHints() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Skip(c.Path()) {
			return c.Next()
		}
		hints := GlobalResources
		if p := c.Path(); p == "/" || p == "" {
			hints = append(append([]string{}, GlobalResources...), HomeResources...)
		}
		c.Set("Link", strings.Join(hints, ", "))
		return c.Next()
	}
}
