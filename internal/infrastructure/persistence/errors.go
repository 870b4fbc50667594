package persistence

import (
	"errors"
	"strings"

	"github.com/tdhub/commandhub/internal/domain/shared"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// TranslateError covers the postgres and sqlite drivers; the string match
// catches connections opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
