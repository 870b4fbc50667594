package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a queued email
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry is an email waiting for (re)delivery
type OutboxEntry struct {
	ID          uuid.UUID
	Recipient   string
	Subject     string
	HTML        string
	Text        string
	Kind        Kind
	Status      OutboxStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEntry queues email with the given retry budget
func NewOutboxEntry(email Email, maxRetries int) *OutboxEntry {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:         uuid.New(),
		Recipient:  email.To,
		Subject:    email.Subject,
		HTML:       email.HTML,
		Text:       email.Text,
		Kind:       email.Kind,
		Status:     OutboxStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Email rebuilds the message from the entry
func (e *OutboxEntry) Email() Email {
	return Email{To: e.Recipient, Subject: e.Subject, HTML: e.HTML, Text: e.Text, Kind: e.Kind}
}

// MarkProcessing claims a pending or failed entry
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("only pending or failed entries can be processed")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSent records successful delivery
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
	e.NextRetryAt = nil
}

// MarkFailed records a delivery failure and schedules the next attempt with
// exponential backoff (1s, 2s, 4s, ...). The entry goes DEAD once the retry
// budget is spent.
func (e *OutboxEntry) MarkFailed(errMsg string, now time.Time) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1)))
	e.NextRetryAt = &next
}

// IsDead reports whether the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims the ids and returns the entries that were claimable
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// ReleaseStale returns entries stuck in processing since before the cutoff to pending
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
