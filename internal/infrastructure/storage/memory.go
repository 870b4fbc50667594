package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	uploadapp "github.com/tdhub/commandhub/internal/application/upload"
)

var _ uploadapp.ObjectStore = (*MemoryObjectStorage)(nil)

// Object is a stored blob
type Object struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// MemoryObjectStorage keeps objects in process memory. It is used in
// development when no bucket is configured; URLs point at BaseURL.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryObjectStorage creates an empty in-memory store
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/files"
	}
	return &MemoryObjectStorage{
		BaseURL: baseURL,
		objects: make(map[string]Object),
	}
}

// Put reads body fully and stores it under key
func (m *MemoryObjectStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType, StoredAt: time.Now()}
	return nil
}

// PresignGet returns a fake URL carrying the expiry; the object must exist
func (m *MemoryObjectStorage) PresignGet(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	if _, ok := m.Get(key); !ok {
		return "", time.Time{}, fmt.Errorf("object %q not found", key)
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	u := m.BaseURL + "/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Get returns the stored object
func (m *MemoryObjectStorage) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (m *MemoryObjectStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
