package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/metrics"
	"github.com/bilgisen/folio/internal/storage"
	"github.com/bilgisen/folio/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
)

const (
	// CacheControl lets browsers keep proxied images for 30 days.
	CacheControl = "public, max-age=2592000, stale-while-revalidate=86400"
	// NoStore marks error responses.
	NoStore            = "no-store"
	defaultContentType = "image/jpeg"
)

// Options configures the proxy Handler.
type Options struct {
	// AllowAny disables the expiring-host allow-list.
	AllowAny bool
	// Mirror, when set, serves and stores copies of fetched images.
	Mirror  storage.Store
	Timeout time.Duration
}

// Handler fetches an image live and streams it back with long-lived
// caching headers.
type Handler struct {
	client *resty.Client
	opts   Options
}

func NewHandler(opts Options) *Handler {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Handler{
		client: resty.New().SetTimeout(opts.Timeout),
		opts:   opts,
	}
}

// Query is the validated query string of GET /api/image.
type Query struct {
	URL string `query:"url" validate:"required,url"`
}

// Serve handles GET /api/image?url=.
func (h *Handler) Serve(c *fiber.Ctx) (err error) {
	log := logger.With("imageproxy")
	source := "none"
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Error in image proxy")
			err = fail(c, fiber.StatusInternalServerError, "Error processing image")
		}
		metrics.ImageResponses.WithLabelValues(source, strconv.Itoa(c.Response().StatusCode())).Inc()
	}()

	imageURL := c.Query("url")
	if imageURL == "" {
		return fail(c, fiber.StatusBadRequest, "No image URL provided")
	}
	if !h.opts.AllowAny && !IsExpiring(imageURL) {
		log.Warn().Str("url", imageURL).Msg("Refusing to proxy unknown image host")
		return fail(c, fiber.StatusBadRequest, "Image host not allowed")
	}

	ctx := c.UserContext()
	key := utils.StableURLKey(imageURL)

	if obj, ok := h.fromMirror(ctx, key); ok {
		source = "mirror"
		return h.send(c, obj.Data, obj.ContentType)
	}

	data, contentType, err := h.fetch(ctx, imageURL)
	if err != nil {
		var upstream *upstreamError
		if errors.As(err, &upstream) {
			log.Error().Err(err).Str("url", imageURL).Msg("Failed to fetch image")
			return fail(c, fiber.StatusBadGateway, "Failed to fetch image")
		}
		log.Error().Err(err).Str("url", imageURL).Msg("Error in image proxy")
		return fail(c, fiber.StatusInternalServerError, "Error processing image")
	}
	source = "upstream"

	h.toMirror(ctx, key, data, contentType)
	return h.send(c, data, contentType)
}

// fail answers with a plain-text error that no cache may keep.
func fail(c *fiber.Ctx, status int, msg string) error {
	c.Set(fiber.HeaderCacheControl, NoStore)
	return c.Status(status).SendString(msg)
}

func (h *Handler) send(c *fiber.Ctx, data []byte, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, CacheControl)
	return c.Status(fiber.StatusOK).Send(data)
}

type upstreamError struct {
	status int
	err    error
}

func (e *upstreamError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("upstream fetch failed: %v", e.err)
	}
	return fmt.Sprintf("upstream returned %d", e.status)
}

func (e *upstreamError) Unwrap() error { return e.err }

func (h *Handler) fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate").
		Get(imageURL)
	if err != nil {
		return nil, "", &upstreamError{err: err}
	}
	if !resp.IsSuccess() {
		return nil, "", &upstreamError{status: resp.StatusCode()}
	}
	return resp.Body(), resp.Header().Get(fiber.HeaderContentType), nil
}

func (h *Handler) fromMirror(ctx context.Context, key string) (*storage.Object, bool) {
	if h.opts.Mirror == nil {
		return nil, false
	}
	obj, err := h.opts.Mirror.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.With("imageproxy").Warn().Err(err).Str("key", key).Msg("Mirror read failed")
		}
		metrics.Miss("image_mirror")
		return nil, false
	}
	metrics.Hit("image_mirror")
	return obj, true
}

func (h *Handler) toMirror(ctx context.Context, key string, data []byte, contentType string) {
	if h.opts.Mirror == nil {
		return
	}
	obj := &storage.Object{Data: data, ContentType: contentType, StoredAt: time.Now()}
	if err := h.opts.Mirror.Put(ctx, key, obj); err != nil {
		logger.With("imageproxy").Warn().Err(err).Str("key", key).Msg("Mirror write failed")
	}
}
