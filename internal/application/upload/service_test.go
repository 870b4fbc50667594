package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

const pngHeader = "\x89PNG\r\n\x1a\n"

func newTestService(store ObjectStore) *Service {
	svc := NewService(store, Config{
		MaxSize:      10,
		AllowedTypes: []string{"image/png", "text/plain"},
		URLExpiry:    15 * time.Minute,
	}, nil)
	fixed := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	svc.newID = func() uuid.UUID { return fixed }
	return svc
}

func TestService_Upload(t *testing.T) {
	userID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	wantKey := "uploads/22222222-2222-2222-2222-222222222222/11111111-1111-1111-1111-111111111111.png"

	t.Run("stores and presigns", func(t *testing.T) {
		store := new(MockObjectStore)
		expires := time.Now().Add(15 * time.Minute)
		store.On("Put", mock.Anything, wantKey, mock.Anything, int64(8), "image/png").Return(nil)
		store.On("PresignGet", mock.Anything, wantKey, 15*time.Minute).Return("https://signed", expires, nil)

		res, err := newTestService(store).Upload(context.Background(), Input{
			UserID:      userID,
			Filename:    "Photo.PNG",
			ContentType: "image/png",
			Size:        8,
			Body:        strings.NewReader(pngHeader),
		})
		require.NoError(t, err)
		assert.Equal(t, wantKey, res.Key)
		assert.Equal(t, "https://signed", res.URL)
		assert.Equal(t, "image/png", res.ContentType)
		assert.Equal(t, int64(8), res.Size)
		store.AssertExpectations(t)
	})

	t.Run("rejects oversized file before storing", func(t *testing.T) {
		store := new(MockObjectStore)
		_, err := newTestService(store).Upload(context.Background(), Input{
			UserID: userID, Filename: "a.txt", ContentType: "text/plain", Size: 11, Body: strings.NewReader("01234567890"),
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "FILE_TOO_LARGE", de.Code)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects disallowed content type", func(t *testing.T) {
		_, err := newTestService(new(MockObjectStore)).Upload(context.Background(), Input{
			UserID: userID, Filename: "a.exe", ContentType: "application/x-msdownload", Size: 2, Body: strings.NewReader("MZ"),
		})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("declared type is not trusted", func(t *testing.T) {
		store := new(MockObjectStore)
		_, err := newTestService(store).Upload(context.Background(), Input{
			UserID: userID, Filename: "x.html", ContentType: "image/png", Size: 10, Body: strings.NewReader("<html><scr"),
		})
		assert.ErrorIs(t, err, ErrUnsupportedType)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("extension follows detected type", func(t *testing.T) {
		store := new(MockObjectStore)
		var stored []byte
		store.On("Put", mock.Anything, wantKey, mock.Anything, int64(8), "image/png").
			Run(func(args mock.Arguments) {
				stored, _ = io.ReadAll(args.Get(2).(io.Reader))
			}).Return(nil)
		store.On("PresignGet", mock.Anything, wantKey, mock.Anything).Return("u", time.Now(), nil)

		res, err := newTestService(store).Upload(context.Background(), Input{
			UserID: userID, Filename: "page.html", ContentType: "text/html", Size: 8, Body: strings.NewReader(pngHeader),
		})
		require.NoError(t, err)
		assert.Equal(t, wantKey, res.Key)
		assert.Equal(t, []byte(pngHeader), stored)
	})

	t.Run("content type parameters are ignored", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("Put", mock.Anything, mock.Anything, mock.Anything, int64(2), "text/plain").Return(nil)
		store.On("PresignGet", mock.Anything, mock.Anything, mock.Anything).Return("u", time.Now(), nil)

		_, err := newTestService(store).Upload(context.Background(), Input{
			UserID: userID, Filename: "notes", ContentType: "text/plain; charset=utf-8", Size: 2, Body: strings.NewReader("hi"),
		})
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := newTestService(new(MockObjectStore)).Upload(context.Background(), Input{UserID: userID})
		assert.ErrorIs(t, err, ErrFileRequired)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("s3 down"))

		_, err := newTestService(store).Upload(context.Background(), Input{
			UserID: userID, Filename: "a.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x"),
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "UPLOAD_FAILED", de.Code)
	})
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension(mimetype.Detect([]byte(pngHeader))))
	assert.Equal(t, ".txt", extension(mimetype.Detect([]byte("plain words"))))
	assert.Equal(t, ".pdf", extension(mimetype.Detect([]byte("%PDF-1.7\n"))))
}
