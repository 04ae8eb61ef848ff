package posts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/folio/internal/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	mu    sync.Mutex
	pages []notion.Page
	err   error
	delay time.Duration
	calls int32
	query notion.Query
	dbID  string
}

func (f *fakeSource) QueryDatabase(_ context.Context, databaseID string, q notion.Query) ([]notion.Page, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query, f.dbID = q, databaseID
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func (f *fakeSource) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeRenderer struct {
	calls    int32
	inFlight int32
	peak     int32
	delay    time.Duration
	body     func(notion.Page) string
}

func (f *fakeRenderer) Convert(_ context.Context, page notion.Page) string {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.body != nil {
		return f.body(page)
	}
	return "<p>" + page.ID + "</p>"
}

func (f *fakeRenderer) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func page(id, slug, date string) notion.Page {
	props := map[string]notion.Property{"Title": titleProp("Post " + id)}
	if slug != "" {
		props["Slug"] = richProp(slug)
	}
	if date != "" {
		props["Date"] = dateProp(date)
	}
	return notion.Page{
		ID:             id,
		CreatedTime:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		LastEditedTime: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		Properties:     props,
	}
}

func newTestRepo(source *fakeSource, renderer *fakeRenderer) (*Repository, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewRepository(source, renderer, Options{
		DatabaseID: "db",
		Now:        clock.Now,
	})
	return repo, clock
}

func slugs(r ListResult) []string {
	out := make([]string, len(r.Posts))
	for i, p := range r.Posts {
		out[i] = p.Slug
	}
	return out
}

func TestListPostsFutureDateScenario(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{
		page("1", "old", "2024-01-01"),
		page("2", "future", "2030-01-01"),
		page("3", "mid", "2024-06-01"),
	}}
	repo, clock := newTestRepo(source, &fakeRenderer{})

	res := repo.ListPosts(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"future", "mid", "old"}, slugs(res))
	assert.Equal(t, clock.Now(), res.Posts[0].PublishedAt)
	for _, p := range res.Posts {
		assert.False(t, p.PublishedAt.After(clock.Now()))
	}
}

func TestListPostsQueriesPublishedPages(t *testing.T) {
	source := &fakeSource{}
	repo, _ := newTestRepo(source, &fakeRenderer{})

	res := repo.ListPosts(context.Background())

	require.NoError(t, res.Err)
	assert.NotNil(t, res.Posts)
	assert.Empty(t, res.Posts)
	assert.False(t, res.Degraded())
	assert.Equal(t, "db", source.dbID)
	require.NotNil(t, source.query.Filter)
	assert.Equal(t, PropPublished, source.query.Filter.Property)
	assert.True(t, source.query.Filter.Checkbox.Equals)
	assert.Equal(t, []notion.Sort{{Property: PropDate, Direction: "descending"}}, source.query.Sorts)
}

func TestListPostsExcludesUnpublished(t *testing.T) {
	hidden := page("2", "hidden", "2024-02-01")
	hidden.Properties["Published"] = checkbox(false)
	shown := page("3", "shown", "2024-03-01")
	shown.Properties["Published"] = checkbox(true)
	archived := page("4", "archived", "2024-04-01")
	archived.Archived = true

	source := &fakeSource{pages: []notion.Page{page("1", "plain", "2024-01-01"), hidden, shown, archived}}
	repo, _ := newTestRepo(source, &fakeRenderer{})

	assert.Equal(t, []string{"shown", "plain"}, slugs(repo.ListPosts(context.Background())))
}

func TestListPostsStableOnEqualDates(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{
		page("1", "c", "2024-01-01"),
		page("2", "x", "2024-06-01"),
		page("3", "y", "2024-06-01"),
		page("4", "z", "2024-06-01"),
	}}
	repo, _ := newTestRepo(source, &fakeRenderer{})

	assert.Equal(t, []string{"x", "y", "z", "c"}, slugs(repo.ListPosts(context.Background())))
}

func TestListPostsAssemblesFields(t *testing.T) {
	p := page("abc", "", "2024-05-05")
	p.Properties["Summary"] = richProp("About things")
	p.Properties["Tags"] = notion.Property{Type: "multi_select", MultiSelect: []notion.SelectOption{{Name: "go"}}}
	p.Cover = &notion.FileObject{Type: notion.FileExternal, External: &notion.ExternalFile{URL: "https://example.com/c.png"}}

	renderer := &fakeRenderer{body: func(notion.Page) string {
		return `<p><img src="https://file.notion.so/f/a.png"></p>`
	}}
	repo, _ := newTestRepo(&fakeSource{pages: []notion.Page{p}}, renderer)

	res := repo.ListPosts(context.Background())
	require.Len(t, res.Posts, 1)
	got := res.Posts[0]

	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "abc", got.Slug)
	assert.Equal(t, "Post abc", got.Title)
	assert.Equal(t, "About things", got.Summary)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Equal(t, "https://example.com/c.png", got.Image)
	assert.Equal(t, p.LastEditedTime, got.LastEditedAt)
	assert.Equal(t, `<p><img src="/api/image?url=https%3A%2F%2Ffile.notion.so%2Ff%2Fa.png"></p>`, got.Source)
	assert.NotContains(t, got.Source, "https://file.notion.so")
}

func TestListPostsCachedWithinTTL(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{page("1", "a", "2024-01-01")}}
	repo, clock := newTestRepo(source, &fakeRenderer{})
	ctx := context.Background()

	first := repo.ListPosts(ctx)
	clock.Advance(30 * time.Minute)
	second := repo.ListPosts(ctx)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.Calls())

	clock.Advance(31 * time.Minute)
	repo.ListPosts(ctx)
	assert.Equal(t, 2, source.Calls())

	repo.ListPosts(ctx)
	assert.Equal(t, 2, source.Calls())
}

func TestListPostsReusesContentForUnchangedPages(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{page("1", "a", "2024-01-01"), page("2", "b", "2024-02-01")}}
	renderer := &fakeRenderer{}
	repo, clock := newTestRepo(source, renderer)
	ctx := context.Background()

	repo.ListPosts(ctx)
	require.Equal(t, 2, renderer.Calls())

	clock.Advance(2 * time.Hour)
	source.mu.Lock()
	edited := page("2", "b", "2024-02-01")
	edited.LastEditedTime = edited.LastEditedTime.Add(time.Hour)
	source.pages = []notion.Page{page("1", "a", "2024-01-01"), edited}
	source.mu.Unlock()

	res := repo.ListPosts(ctx)
	assert.Equal(t, 2, source.Calls())
	assert.Equal(t, 3, renderer.Calls())
	assert.Equal(t, "<p>1</p>", res.Posts[1].Source)
}

func TestListPostsEmptyBodyNotCached(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{page("1", "a", "2024-01-01")}}
	renderer := &fakeRenderer{body: func(notion.Page) string { return "" }}
	repo, clock := newTestRepo(source, renderer)
	ctx := context.Background()

	repo.ListPosts(ctx)
	clock.Advance(2 * time.Hour)
	res := repo.ListPosts(ctx)

	assert.Equal(t, 2, renderer.Calls())
	assert.Equal(t, "", res.Posts[0].Source)
}

func TestListPostsUpstreamFailureDegrades(t *testing.T) {
	source := &fakeSource{err: errors.New("notion down")}
	repo, _ := newTestRepo(source, &fakeRenderer{})
	ctx := context.Background()

	res := repo.ListPosts(ctx)
	assert.True(t, res.Degraded())
	assert.ErrorContains(t, res.Err, "notion down")
	assert.NotNil(t, res.Posts)
	assert.Empty(t, res.Posts)

	// failures are not cached
	source.fail(nil)
	source.mu.Lock()
	source.pages = []notion.Page{page("1", "a", "2024-01-01")}
	source.mu.Unlock()

	res = repo.ListPosts(ctx)
	require.NoError(t, res.Err)
	assert.Len(t, res.Posts, 1)
	assert.Equal(t, 2, source.Calls())
}

func TestListPostsCollapsesConcurrentMisses(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{page("1", "a", "2024-01-01")}, delay: 50 * time.Millisecond}
	repo, _ := newTestRepo(source, &fakeRenderer{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := repo.ListPosts(context.Background())
			assert.Len(t, res.Posts, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, source.Calls())
}

func TestListPostsBoundsConcurrency(t *testing.T) {
	pages := make([]notion.Page, 12)
	for i := range pages {
		pages[i] = page(string(rune('a'+i)), "", "2024-01-01")
	}
	renderer := &fakeRenderer{delay: 10 * time.Millisecond}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	repo := NewRepository(&fakeSource{pages: pages}, renderer, Options{MaxConcurrency: 3, Now: clock.Now})

	res := repo.ListPosts(context.Background())

	assert.Len(t, res.Posts, 12)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&renderer.peak)), 3)
	// equal dates keep upstream order
	for i, p := range res.Posts {
		assert.Equal(t, pages[i].ID, p.ID)
	}
}

func TestGetPost(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{
		page("1", "first", "2024-01-01"),
		page("2", "dup", "2024-03-01"),
		page("3", "dup", "2024-02-01"),
	}}
	repo, _ := newTestRepo(source, &fakeRenderer{})
	ctx := context.Background()

	res := repo.GetPost(ctx, "first")
	require.True(t, res.Found())
	assert.Equal(t, "1", res.Post.ID)

	res = repo.GetPost(ctx, "dup")
	require.True(t, res.Found())
	assert.Equal(t, "2", res.Post.ID)

	res = repo.GetPost(ctx, "missing-slug")
	assert.False(t, res.Found())
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, source.Calls())
}

func TestGetPostMissingOnEmptyAndFailedList(t *testing.T) {
	repo, _ := newTestRepo(&fakeSource{}, &fakeRenderer{})
	res := repo.GetPost(context.Background(), "missing-slug")
	assert.False(t, res.Found())
	assert.NoError(t, res.Err)

	repo, _ = newTestRepo(&fakeSource{err: errors.New("boom")}, &fakeRenderer{})
	res = repo.GetPost(context.Background(), "missing-slug")
	assert.False(t, res.Found())
	assert.Error(t, res.Err)
}

func TestClearForcesReload(t *testing.T) {
	source := &fakeSource{pages: []notion.Page{page("1", "a", "2024-01-01")}}
	renderer := &fakeRenderer{}
	repo, _ := newTestRepo(source, renderer)
	ctx := context.Background()

	repo.ListPosts(ctx)
	require.NoError(t, repo.Clear(ctx))
	repo.ListPosts(ctx)

	assert.Equal(t, 2, source.Calls())
	assert.Equal(t, 2, renderer.Calls())
}

func TestListPostsReturnsCopies(t *testing.T) {
	p := page("1", "a", "2024-01-01")
	p.Properties["Tags"] = notion.Property{Type: "multi_select", MultiSelect: []notion.SelectOption{{Name: "go"}}}
	repo, _ := newTestRepo(&fakeSource{pages: []notion.Page{p}}, &fakeRenderer{})
	ctx := context.Background()

	res := repo.ListPosts(ctx)
	res.Posts[0].Slug = "mutated"
	res.Posts[0].Tags[0] = "mutated"

	again := repo.ListPosts(ctx).Posts[0]
	assert.Equal(t, "a", again.Slug)
	assert.Equal(t, []string{"go"}, again.Tags)

	post := repo.GetPost(ctx, "a").Post
	require.NotNil(t, post)
	post.Tags[0] = "mutated"
	assert.Equal(t, []string{"go"}, repo.ListPosts(ctx).Posts[0].Tags)
}
