package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// BaseModel holds the columns every table has
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) fromEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

func (m *BaseModel) toEntity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// nullable maps "" to NULL so optional unique columns do not collide
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests and development
func AllModels() []any {
	return []any{
		&UserModel{},
		&ProfileModel{},
		&AffiliateModel{},
		&SubscriptionModel{},
		&PaymentModel{},
		&MailingSubscriberModel{},
		&EmailOutboxModel{},
	}
}
