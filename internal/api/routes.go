package api

import (
	"github.com/bilgisen/folio/internal/imageproxy"
	"github.com/bilgisen/folio/internal/metrics"
	"github.com/bilgisen/folio/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// imageQueryError keeps the proxy's plain-text error bodies.
func imageQueryError(c *fiber.Ctx, fields middleware.FieldErrors, _ error) error {
	c.Set(fiber.HeaderCacheControl, imageproxy.NoStore)
	if fields["URL"] == "required" {
		return c.Status(fiber.StatusBadRequest).SendString("No image URL provided")
	}
	return c.Status(fiber.StatusBadRequest).SendString("Invalid image URL")
}

// SetupRoutes registers every route. An empty adminKey leaves the admin
// routes answering 404.
func SetupRoutes(app *fiber.App, h *Handlers, images *imageproxy.Handler, adminKey string) {
	app.Get("/health", h.HealthCheck)
	app.Get("/metrics", metrics.Handler())
	app.Get("/sitemap.xml", h.Sitemap)

	api := app.Group("/api")
	{
		api.Get("/posts", middleware.ValidateQuery[ListQuery](), h.ListPosts)
		api.Get("/posts/:slug", h.GetPost)
		api.Get("/image", middleware.ValidateQuery[imageproxy.Query](imageQueryError), images.Serve)
	}

	admin := api.Group("/admin", middleware.AdminOnly(adminKey))
	{
		admin.Post("/cache/clear", h.ClearCache)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
