package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/posts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	list := []models.Post{
		{ID: "1", Slug: "hello-world", Title: "Hello", PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Tags: []string{}},
		{ID: "2", Slug: "a/b", Title: "Nested", Image: "https://file.notion.so/f/cover.png", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Tags: []string{"go"}},
	}

	require.NoError(t, write(dir, "https://blog.example.com", list))

	data, err := os.ReadFile(filepath.Join(dir, "posts.json"))
	require.NoError(t, err)
	var got []models.Post
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 2)

	data, err = os.ReadFile(filepath.Join(dir, "posts", "hello-world.json"))
	require.NoError(t, err)
	var one models.Post
	require.NoError(t, json.Unmarshal(data, &one))
	assert.Equal(t, "Hello", one.Title)

	data, err = os.ReadFile(filepath.Join(dir, "posts", "a%2Fb.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"image": "/api/image?url=https%3A%2F%2Ffile.notion.so%2Ff%2Fcover.png"`)

	sitemap, err := os.ReadFile(filepath.Join(dir, "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sitemap), "<loc>https://blog.example.com/blog/hello-world</loc>")
}

type stubLister struct {
	res posts.ListResult
}

func (s stubLister) ListPosts(context.Context) posts.ListResult { return s.res }

func TestExportExitCodes(t *testing.T) {
	dir := t.TempDir()
	ok := stubLister{res: posts.ListResult{Posts: []models.Post{{ID: "1", Slug: "one", Tags: []string{}}}}}
	assert.Equal(t, 0, export(context.Background(), ok, dir, "https://x.dev"))
	_, err := os.Stat(filepath.Join(dir, "posts", "one.json"))
	assert.NoError(t, err)

	empty := t.TempDir()
	down := stubLister{res: posts.ListResult{Posts: []models.Post{}, Err: errors.New("notion down")}}
	assert.Equal(t, 1, export(context.Background(), down, empty, "https://x.dev"))
	_, err = os.Stat(filepath.Join(empty, "posts.json"))
	assert.True(t, os.IsNotExist(err))

	blocked := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))
	assert.Equal(t, 1, export(context.Background(), ok, blocked, "https://x.dev"))
}
