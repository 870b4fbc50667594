// Package upload stores user files in object storage and hands back a short-lived download link.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

// ObjectStore is implemented by the storage layer (S3 or in-memory)
type ObjectStore interface {
	// Put writes size bytes from body under key
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// PresignGet returns a temporary download URL and its expiry
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

var (
	ErrFileRequired    = shared.NewDomainError("FILE_REQUIRED", "A file is required")
	ErrFileTooLarge    = shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the maximum upload size")
	ErrUnsupportedType = shared.NewDomainError("UNSUPPORTED_FILE_TYPE", "File type is not allowed")
)

// sniffLen is how much of the body is read to detect its type
const sniffLen = 3072

// Config holds upload limits
type Config struct {
	MaxSize      int64
	AllowedTypes []string
	URLExpiry    time.Duration
}

// Input is one uploaded file. Filename and ContentType come from the client
// and are only logged; the stored type is detected from the content.
type Input struct {
	UserID      uuid.UUID
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result describes the stored object
type Result struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service handles uploads
type Service struct {
	store   ObjectStore
	config  Config
	allowed []string
	logger  *zap.Logger
	newID   func() uuid.UUID
}

// NewService creates an upload service
func NewService(store ObjectStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}
	allowed := make([]string, 0, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			allowed = append(allowed, t)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		config:  cfg,
		allowed: allowed,
		logger:  logger,
		newID:   uuid.New,
	}
}

// MaxSize returns the configured size limit in bytes
func (s *Service) MaxSize() int64 {
	return s.config.MaxSize
}

// Upload validates and stores a file under uploads/<user>/<uuid><ext>
func (s *Service) Upload(ctx context.Context, in Input) (*Result, error) {
	if in.Body == nil || in.Size <= 0 {
		return nil, ErrFileRequired
	}
	if s.config.MaxSize > 0 && in.Size > s.config.MaxSize {
		return nil, shared.NewDomainError(ErrFileTooLarge.Code,
			fmt.Sprintf("File exceeds the maximum upload size of %d bytes", s.config.MaxSize))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, shared.NewDomainErrorWithCause("UPLOAD_FAILED", "Failed to read file", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !s.isAllowed(detected) {
		s.logger.Info("Rejected upload",
			zap.String("filename", in.Filename),
			zap.String("declared_type", in.ContentType),
			zap.String("detected_type", detected.String()))
		return nil, ErrUnsupportedType
	}
	contentType := normalizeContentType(detected.String())

	key := s.objectKey(in.UserID, detected)
	body := io.MultiReader(bytes.NewReader(head), in.Body)
	if err := s.store.Put(ctx, key, body, in.Size, contentType); err != nil {
		s.logger.Error("Failed to store upload",
			zap.String("key", key),
			zap.Int64("size", in.Size),
			zap.Error(err))
		return nil, shared.NewDomainErrorWithCause("UPLOAD_FAILED", "Failed to store file", err)
	}

	url, expiresAt, err := s.store.PresignGet(ctx, key, s.config.URLExpiry)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("UPLOAD_FAILED", "Failed to generate download URL", err)
	}

	return &Result{
		Key:         key,
		Size:        in.Size,
		ContentType: contentType,
		URL:         url,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *Service) isAllowed(detected *mimetype.MIME) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for _, t := range s.allowed {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

func (s *Service) objectKey(userID uuid.UUID, detected *mimetype.MIME) string {
	return fmt.Sprintf("uploads/%s/%s%s", userID, s.newID(), extension(detected))
}

func normalizeContentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mediaType
}

// extension maps the detected type to a file extension
func extension(detected *mimetype.MIME) string {
	if ext := detected.Extension(); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(normalizeContentType(detected.String())); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
