package api

import (
	"context"
	"strings"
	"time"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/middleware"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/posts"
	"github.com/gofiber/fiber/v2"
)

// PostService is the read side of the post repository plus cache reset.
type PostService interface {
	ListPosts(ctx context.Context) posts.ListResult
	GetPost(ctx context.Context, slug string) posts.PostResult
	Clear(ctx context.Context) error
}

type Handlers struct {
	posts   PostService
	siteURL string
	started time.Time
}

func NewHandlers(svc PostService, siteURL string) *Handlers {
	return &Handlers{
		posts:   svc,
		siteURL: strings.TrimRight(siteURL, "/"),
		started: time.Now(),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// ListQuery narrows GET /api/posts.
type ListQuery struct {
	Tag   string `query:"tag"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type listResponse struct {
	Items    []models.Post `json:"items"`
	Total    int           `json:"total"`
	Degraded bool          `json:"degraded"`
}

// ListPosts handles GET /api/posts
func (h *Handlers) ListPosts(c *fiber.Ctx) error {
	q := middleware.Query[ListQuery](c)
	if q == nil {
		q = &ListQuery{}
	}

	res := h.posts.ListPosts(c.UserContext())
	items := res.Posts
	if q.Tag != "" {
		items = withTag(items, q.Tag)
	}
	total := len(items)
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}

	if res.Degraded() {
		c.Set(fiber.HeaderCacheControl, "no-store")
	}
	return c.JSON(listResponse{Items: items, Total: total, Degraded: res.Degraded()})
}

func withTag(list []models.Post, tag string) []models.Post {
	out := make([]models.Post, 0, len(list))
	for _, p := range list {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// GetPost handles GET /api/posts/:slug
func (h *Handlers) GetPost(c *fiber.Ctx) error {
	slug := c.Params("slug")

	res := h.posts.GetPost(c.UserContext(), slug)
	if res.Found() {
		return c.JSON(res.Post)
	}

	if res.Err != nil {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Content source unavailable",
		})
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Post not found",
	})
}

// ClearCache handles POST /api/admin/cache/clear
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	log := logger.With("api")

	if err := h.posts.Clear(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("Error clearing caches")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear cache",
		})
	}

	log.Info().Str("ip", c.IP()).Msg("Caches cleared")
	return c.JSON(fiber.Map{"status": "cleared"})
}
