package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/notification"
)

// EmailOutboxModel is the persistence model for notification.OutboxEntry
type EmailOutboxModel struct {
	ID          uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	Recipient   string                    `gorm:"type:varchar(200);not null"`
	Subject     string                    `gorm:"type:varchar(300);not null"`
	HTML        string                    `gorm:"column:html;type:text;not null;default:''"`
	Text        string                    `gorm:"column:text_body;type:text;not null;default:''"`
	Kind        notification.Kind         `gorm:"type:varchar(50);not null;default:''"`
	Status      notification.OutboxStatus `gorm:"type:varchar(20);not null;index"`
	RetryCount  int                       `gorm:"not null;default:0"`
	MaxRetries  int                       `gorm:"not null;default:5"`
	LastError   string                    `gorm:"type:text;not null;default:''"`
	NextRetryAt *time.Time                `gorm:"index"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EmailOutboxModel) TableName() string {
	return "email_outbox"
}

// EmailOutboxModelFromDomain converts a domain outbox entry
func EmailOutboxModelFromDomain(e *notification.OutboxEntry) *EmailOutboxModel {
	return &EmailOutboxModel{
		ID:          e.ID,
		Recipient:   e.Recipient,
		Subject:     e.Subject,
		HTML:        e.HTML,
		Text:        e.Text,
		Kind:        e.Kind,
		Status:      e.Status,
		RetryCount:  e.RetryCount,
		MaxRetries:  e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToDomain converts to a domain outbox entry
func (m *EmailOutboxModel) ToDomain() *notification.OutboxEntry {
	return &notification.OutboxEntry{
		ID:          m.ID,
		Recipient:   m.Recipient,
		Subject:     m.Subject,
		HTML:        m.HTML,
		Text:        m.Text,
		Kind:        m.Kind,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
