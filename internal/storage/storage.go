package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("object not found")

// Object is a mirrored image.
type Object struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// Store keeps mirrored copies of proxied images.
type Store interface {
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, obj *Object) error
}

var validKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Local mirrors images on disk, two levels of fan-out by key prefix.
type Local struct {
	basePath string
	mu       sync.RWMutex
}

var _ Store = (*Local)(nil)

type meta struct {
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

func NewLocal(basePath string) (*Local, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Local{basePath: basePath}, nil
}

func (s *Local) paths(key string) (blob, metaFile string, err error) {
	if !validKey.MatchString(key) {
		return "", "", fmt.Errorf("invalid storage key %q", key)
	}
	dir := filepath.Join(s.basePath, key[:2], key[2:4])
	return filepath.Join(dir, key), filepath.Join(dir, key+".json"), nil
}

// Get reads an object and its metadata.
func (s *Local) Get(ctx context.Context, key string) (*Object, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	blob, metaFile, err := s.paths(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(metaFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", metaFile, err)
	}

	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	data, err := os.ReadFile(blob)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", blob, err)
	}

	return &Object{Data: data, ContentType: m.ContentType, StoredAt: m.StoredAt}, nil
}

// Put writes the blob first and the metadata last; Get treats a missing
// metadata file as a miss, so a half-written object is never served.
func (s *Local) Put(ctx context.Context, key string, obj *Object) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	blob, metaFile, err := s.paths(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(blob), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	if err := os.WriteFile(blob, obj.Data, 0644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	storedAt := obj.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	data, err := json.MarshalIndent(meta{
		ContentType: obj.ContentType,
		Size:        len(obj.Data),
		StoredAt:    storedAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}
