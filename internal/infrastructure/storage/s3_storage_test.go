package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/infrastructure/config"
	"go.uber.org/zap/zaptest"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

// fakeS3 answers just enough of the S3 REST API for path-style requests
type fakeS3 struct {
	mu           sync.Mutex
	requests     []recordedRequest
	bucketExists bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})
	exists := f.bucketExists
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead && !exists:
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && r.URL.Path == "/test-bucket":
		f.mu.Lock()
		f.bucketExists = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	default:
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeS3) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		PresignExpiry:   15 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{AccessKeyID: "k", SecretAccessKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half configured credentials return error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{Bucket: "b", AccessKeyID: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		cfg := testStorageConfig("http://localhost:9000")
		cfg.PresignExpiry = 0
		s, err := NewS3ObjectStorage(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
		assert.Equal(t, "test-bucket", s.Bucket())
	})

	t.Run("options override configuration", func(t *testing.T) {
		s, err := NewS3ObjectStorage(ctx, testStorageConfig("localhost:9000"),
			WithPresignExpiration(time.Hour),
			WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.presignExpiration)
	})
}

func TestS3ObjectStorage_PresignGet(t *testing.T) {
	s, err := NewS3ObjectStorage(context.Background(), testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		_, _, err := s.PresignGet(context.Background(), "", time.Minute)
		assert.ErrorIs(t, err, ErrKeyRequired)
	})

	t.Run("generates signed path-style URL", func(t *testing.T) {
		url, expiresAt, err := s.PresignGet(context.Background(), "uploads/u1/file.png", 0)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/test-bucket/uploads/u1/file.png?"))
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Contains(t, url, "X-Amz-Expires=900")
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)
	})
}

func TestS3ObjectStorage_Put(t *testing.T) {
	fake := &fakeS3{bucketExists: true}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewS3ObjectStorage(context.Background(), testStorageConfig(server.URL))
	require.NoError(t, err)

	err = s.Put(context.Background(), "uploads/u1/a.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)

	reqs := fake.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/test-bucket/uploads/u1/a.txt", reqs[0].Path)
	assert.Equal(t, "text/plain", reqs[0].ContentType)
	assert.Contains(t, reqs[0].Body, "hello")

	assert.ErrorIs(t, s.Put(context.Background(), "", strings.NewReader("x"), 1, "text/plain"), ErrKeyRequired)
}

func TestS3ObjectStorage_EnsureBucket(t *testing.T) {
	t.Run("existing bucket is left alone", func(t *testing.T) {
		fake := &fakeS3{bucketExists: true}
		server := httptest.NewServer(fake)
		defer server.Close()

		s, err := NewS3ObjectStorage(context.Background(), testStorageConfig(server.URL))
		require.NoError(t, err)
		require.NoError(t, s.EnsureBucket(context.Background()))
		require.NoError(t, s.Ping(context.Background()))

		for _, r := range fake.all() {
			assert.Equal(t, http.MethodHead, r.Method)
		}
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := &fakeS3{}
		server := httptest.NewServer(fake)
		defer server.Close()

		s, err := NewS3ObjectStorage(context.Background(), testStorageConfig(server.URL))
		require.NoError(t, err)
		require.NoError(t, s.EnsureBucket(context.Background()))

		reqs := fake.all()
		require.Len(t, reqs, 2)
		assert.Equal(t, http.MethodPut, reqs[1].Method)
		assert.Equal(t, "/test-bucket", reqs[1].Path)
	})
}
