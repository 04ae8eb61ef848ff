// Command export writes the post list, every post and the sitemap as static
// files for a statically generated site.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bilgisen/folio/internal/api"
	"github.com/bilgisen/folio/internal/app"
	"github.com/bilgisen/folio/internal/config"
	"github.com/bilgisen/folio/internal/imageproxy"
	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/posts"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	dir := flag.String("out", cfg.ExportDir, "output directory")
	flag.Parse()

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: cfg.LogFile, Pretty: true}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+cfg.HTTPTimeout*10)
	defer cancel()

	services, err := app.Build(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return 1
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing connections")
		}
	}()

	return export(ctx, services.Posts, *dir, cfg.SiteURL)
}

// PostLister is the part of the repository the export needs.
type PostLister interface {
	ListPosts(ctx context.Context) posts.ListResult
}

func export(ctx context.Context, repo PostLister, dir, siteURL string) int {
	log := logger.Get()

	res := repo.ListPosts(ctx)
	if res.Degraded() {
		// an empty export would wipe the published site
		log.Error().Err(res.Err).Msg("Content source unavailable, nothing exported")
		return 1
	}

	if err := write(dir, siteURL, res.Posts); err != nil {
		log.Error().Err(err).Msg("Export failed")
		return 1
	}
	log.Info().Int("posts", len(res.Posts)).Str("dir", dir).Msg("Export finished")
	return 0
}

func write(dir, siteURL string, list []models.Post) error {
	if err := os.MkdirAll(filepath.Join(dir, "posts"), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "posts.json"), list); err != nil {
		return err
	}
	for _, p := range list {
		name := url.PathEscape(p.Slug) + ".json"
		if err := writeJSON(filepath.Join(dir, "posts", name), p); err != nil {
			return err
		}
	}

	sitemap, err := api.BuildSitemap(siteURL, list)
	if err != nil {
		return fmt.Errorf("failed to build sitemap: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "sitemap.xml"), sitemap, 0o644)
}

// writeJSON routes every expiring link left anywhere in v through the
// image proxy before writing it.
func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	tree = imageproxy.ToAny(imageproxy.RewriteStructured(imageproxy.FromAny(tree)))

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
