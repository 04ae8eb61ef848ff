package posts

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/imageproxy"
	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/metrics"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/notion"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPostsTTL       = time.Hour
	DefaultContentTTL     = 24 * time.Hour
	DefaultMaxConcurrency = 5

	postsKey = "posts"
)

// PageSource lists database pages.
type PageSource interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
}

// Renderer produces the HTML body of a page, or "" when it has none.
type Renderer interface {
	Convert(ctx context.Context, page notion.Page) string
}

type Options struct {
	DatabaseID     string
	PostsTTL       time.Duration
	ContentTTL     time.Duration
	MaxConcurrency int
	// Content caches rendered bodies across list refreshes. Defaults to an
	// in-memory store.
	Content cache.ContentStore
	Now     func() time.Time
}

// ListResult is the outcome of ListPosts. Posts is never nil; Err is set
// when the upstream could not be read, in which case Posts is empty.
type ListResult struct {
	Posts []models.Post
	Err   error
}

func (r ListResult) Degraded() bool { return r.Err != nil }

// PostResult is the outcome of GetPost. A nil Post with a nil Err means the
// slug does not exist.
type PostResult struct {
	Post *models.Post
	Err  error
}

func (r PostResult) Found() bool { return r.Post != nil }

// Repository assembles posts from a Notion database and keeps them cached.
type Repository struct {
	source   PageSource
	renderer Renderer
	opts     Options
	posts    *cache.Cache[[]models.Post]
	group    singleflight.Group
}

func NewRepository(source PageSource, renderer Renderer, opts Options) *Repository {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PostsTTL <= 0 {
		opts.PostsTTL = DefaultPostsTTL
	}
	if opts.ContentTTL <= 0 {
		opts.ContentTTL = DefaultContentTTL
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.Content == nil {
		opts.Content = cache.NewMemory(cache.WithClock(opts.Now))
	}
	return &Repository{
		source:   source,
		renderer: renderer,
		opts:     opts,
		posts:    cache.New[[]models.Post](cache.WithClock(opts.Now)),
	}
}

// ListPosts returns every published post, newest first.
func (r *Repository) ListPosts(ctx context.Context) ListResult {
	if cached, ok := r.posts.Get(postsKey); ok {
		metrics.Hit("posts")
		return ListResult{Posts: clonePosts(cached)}
	}
	metrics.Miss("posts")

	v, err, _ := r.group.Do(postsKey, func() (any, error) {
		return r.load(ctx)
	})
	if err != nil {
		logger.With("posts").Error().Err(err).Msg("Error listing posts")
		return ListResult{Posts: []models.Post{}, Err: err}
	}
	return ListResult{Posts: clonePosts(v.([]models.Post))}
}

// GetPost looks slug up in the current list. When several posts share a
// slug the first one wins.
func (r *Repository) GetPost(ctx context.Context, slug string) PostResult {
	list := r.ListPosts(ctx)
	for i := range list.Posts {
		if list.Posts[i].Slug == slug {
			p := list.Posts[i]
			return PostResult{Post: &p}
		}
	}
	return PostResult{Err: list.Err}
}

// Clear drops the post list and every cached body.
func (r *Repository) Clear(ctx context.Context) error {
	r.posts.Clear()
	r.group.Forget(postsKey)
	if err := r.opts.Content.Clear(ctx); err != nil {
		return fmt.Errorf("clear content cache: %w", err)
	}
	return nil
}

func (r *Repository) load(ctx context.Context) ([]models.Post, error) {
	log := logger.With("posts")
	start := time.Now()

	pages, err := r.source.QueryDatabase(ctx, r.opts.DatabaseID, notion.PublishedQuery(PropPublished, PropDate))
	if err != nil {
		return nil, fmt.Errorf("query published pages: %w", err)
	}

	now := r.opts.Now()
	built := make([]*models.Post, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrency)
	for i, page := range pages {
		if page.Archived || !Published(page) {
			continue
		}
		g.Go(func() error {
			post := r.build(gctx, page, now)
			built[i] = &post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Post, 0, len(built))
	for _, p := range built {
		if p != nil {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	warnDuplicateSlugs(out)

	r.posts.Set(postsKey, out, r.opts.PostsTTL)
	metrics.PostsListed.Set(float64(len(out)))

	log.Info().
		Int("pages", len(pages)).
		Int("posts", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Loaded posts")
	return out, nil
}

func (r *Repository) build(ctx context.Context, page notion.Page, now time.Time) models.Post {
	return models.Post{
		ID:           page.ID,
		Slug:         Slug(page),
		Title:        Title(page),
		PublishedAt:  PublishedAt(page, now),
		LastEditedAt: page.LastEditedTime,
		Summary:      Summary(page),
		Image:        Cover(page),
		Tags:         Tags(page),
		Source:       r.content(ctx, page),
	}
}

// content returns the rendered body of a page, reusing the stored copy for
// an unchanged edit time.
func (r *Repository) content(ctx context.Context, page notion.Page) string {
	log := logger.With("posts")
	key := contentKey(page)

	html, ok, err := r.opts.Content.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Content cache read failed")
	}
	if ok {
		metrics.Hit("content")
		return html
	}
	metrics.Miss("content")

	html = imageproxy.RewriteMarkup(r.renderer.Convert(ctx, page))
	if html == "" {
		return ""
	}
	if err := r.opts.Content.Set(ctx, key, html, r.opts.ContentTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Content cache write failed")
	}
	return html
}

// clonePosts copies list deep enough that callers cannot reach the cached
// slices.
func clonePosts(list []models.Post) []models.Post {
	out := slices.Clone(list)
	for i := range out {
		out[i].Tags = slices.Clone(out[i].Tags)
	}
	return out
}

func contentKey(page notion.Page) string {
	return page.ID + "-" + page.LastEditedTime.UTC().Format(time.RFC3339)
}

func warnDuplicateSlugs(posts []models.Post) {
	seen := make(map[string]string, len(posts))
	for _, p := range posts {
		if first, dup := seen[p.Slug]; dup {
			logger.With("posts").Warn().
				Str("slug", p.Slug).
				Str("page_id", p.ID).
				Str("shadowed_by", first).
				Msg("Duplicate slug, post is unreachable by slug")
			continue
		}
		seen[p.Slug] = p.ID
	}
}
