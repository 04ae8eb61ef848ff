package cache

import (
	"context"
	"time"
)

// ContentStore holds rendered post bodies keyed by page id and edit time.
type ContentStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, html string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Memory is the process-local ContentStore.
type Memory struct {
	cache *Cache[string]
}

var _ ContentStore = (*Memory)(nil)

func NewMemory(opts ...Option) *Memory {
	return &Memory{cache: New[string](opts...)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.cache.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, html string, ttl time.Duration) error {
	m.cache.Set(key, html, ttl)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.cache.Clear()
	return nil
}
