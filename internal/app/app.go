// Package app wires configuration into the services shared by the server
// and the export binary.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/config"
	"github.com/bilgisen/folio/internal/imageproxy"
	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/notion"
	"github.com/bilgisen/folio/internal/posts"
	"github.com/bilgisen/folio/internal/render"
	"github.com/bilgisen/folio/internal/storage"
)

const r2Prefix = "images/"

// Services holds the long-lived dependencies of a process.
type Services struct {
	Posts  *posts.Repository
	Images *imageproxy.Handler

	closers []func() error
}

// Build connects every backing service named in cfg.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{}

	content, err := s.contentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mirror, err := newMirror(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	client := notion.NewClient(notion.Options{
		BaseURL:    cfg.NotionAPIURL,
		Token:      cfg.NotionToken,
		Version:    cfg.NotionVersion,
		Timeout:    cfg.HTTPTimeout,
		RetryCount: cfg.NotionRetryCount,
	})

	s.Posts = posts.NewRepository(client, render.NewConverter(client), posts.Options{
		DatabaseID:     cfg.NotionDatabaseID,
		PostsTTL:       cfg.PostsCacheTTL,
		ContentTTL:     cfg.ContentCacheTTL,
		MaxConcurrency: cfg.MaxConcurrency,
		Content:        content,
	})

	s.Images = imageproxy.NewHandler(imageproxy.Options{
		AllowAny: cfg.ImageProxyAllowAny,
		Mirror:   mirror,
		Timeout:  cfg.HTTPTimeout,
	})

	return s, nil
}

func (s *Services) contentStore(ctx context.Context, cfg *config.Config) (cache.ContentStore, error) {
	log := logger.With("app")

	if cfg.RedisURL == "" {
		log.Info().Msg("Using in-memory content cache")
		return cache.NewMemory(), nil
	}

	store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content cache: %w", err)
	}
	s.closers = append(s.closers, store.Close)
	log.Info().Str("prefix", cfg.RedisPrefix).Msg("Using Redis content cache")
	return store, nil
}

func newMirror(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	log := logger.With("app")

	switch cfg.ImageMirror {
	case config.MirrorLocal:
		local, err := storage.NewLocal(cfg.MirrorPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize image mirror: %w", err)
		}
		log.Info().Str("path", cfg.MirrorPath).Msg("Mirroring images to disk")
		return local, nil
	case config.MirrorR2:
		r2, err := storage.NewR2(ctx, storage.R2Config{
			Endpoint:  cfg.R2Endpoint,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			Prefix:    r2Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize image mirror: %w", err)
		}
		log.Info().Str("bucket", cfg.R2Bucket).Msg("Mirroring images to R2")
		return r2, nil
	default:
		return nil, nil
	}
}

// Close releases connections opened by Build.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
