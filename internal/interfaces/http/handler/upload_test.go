package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uploadapp "github.com/tdhub/commandhub/internal/application/upload"
	"github.com/tdhub/commandhub/internal/infrastructure/storage"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const testUploadMax = 1 << 10

var testPNG = []byte("\x89PNG\r\n\x1a\npng-bytes")

func setupUploadRouter(store *storage.MemoryObjectStorage, userID *uuid.UUID) *gin.Engine {
	svc := uploadapp.NewService(store, uploadapp.Config{
		MaxSize:      testUploadMax,
		AllowedTypes: []string{"image/png", "application/pdf"},
	}, zap.NewNop())
	h := NewUploadHandler(svc)

	router := gin.New()
	router.POST("/api/upload", func(c *gin.Context) {
		if userID != nil {
			setSessionContext(c, *userID, "customer")
		}
		c.Next()
	}, middleware.BodyLimit(testUploadMax+4<<10), h.Upload)
	return router
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadHandler_Upload(t *testing.T) {
	store := storage.NewMemoryObjectStorage("http://localhost:8080/files")
	userID := uuid.New()
	router := setupUploadRouter(store, &userID)

	body, ct := multipartBody(t, UploadFormField, "logo.png", "image/png", testPNG)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	key := data["key"].(string)
	assert.True(t, strings.HasPrefix(key, "uploads/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "image/png", data["content_type"])
	assert.NotEmpty(t, data["url"])

	obj, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, testPNG, obj.Data)
}

func TestUploadHandler_Errors(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		field       string
		contentType string
		content     []byte
		status      int
		code        string
	}{
		{"missing file field", "attachment", "image/png", []byte("x"), http.StatusBadRequest, "FILE_REQUIRED"},
		{"disallowed type", UploadFormField, "application/x-msdownload", []byte("MZ"), http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"},
		{"html labelled as png", UploadFormField, "image/png", []byte("<html><script>alert(1)</script></html>"), http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"},
		{"too large", UploadFormField, "image/png", bytes.Repeat([]byte("x"), testUploadMax+1), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryObjectStorage("http://localhost:8080/files")
			router := setupUploadRouter(store, &userID)

			body, ct := multipartBody(t, tt.field, "file.bin", tt.contentType, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestUploadHandler_NotMultipart(t *testing.T) {
	userID := uuid.New()
	router := setupUploadRouter(storage.NewMemoryObjectStorage(""), &userID)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FILE_REQUIRED")
}

func TestUploadHandler_RequiresSession(t *testing.T) {
	router := setupUploadRouter(storage.NewMemoryObjectStorage(""), nil)

	body, ct := multipartBody(t, UploadFormField, "logo.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
