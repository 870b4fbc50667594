package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/notification"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository implements notification.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*notification.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.EmailOutboxModel, len(entries))
	for i, e := range entries {
		rows[i] = models.EmailOutboxModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindPending retrieves pending entries, oldest first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*notification.OutboxEntry, error) {
	var rows []models.EmailOutboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", notification.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return toOutboxEntries(rows), err
}

// FindRetryable retrieves failed entries that are due for retry
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*notification.OutboxEntry, error) {
	var rows []models.EmailOutboxModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", notification.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error
	return toOutboxEntries(rows), err
}

// MarkProcessing locks the claimable entries among ids, marks them
// processing and returns them. Rows locked by another worker are skipped.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*notification.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*notification.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.EmailOutboxModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, []notification.OutboxStatus{
				notification.OutboxStatusPending,
				notification.OutboxStatusFailed,
			}).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		rowIDs := make([]uuid.UUID, len(rows))
		for i := range rows {
			rowIDs[i] = rows[i].ID
		}
		now := time.Now().UTC()
		if err := tx.Model(&models.EmailOutboxModel{}).
			Where("id IN ?", rowIDs).
			Updates(map[string]any{
				"status":     notification.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		claimed = toOutboxEntries(rows)
		for _, e := range claimed {
			e.Status = notification.OutboxStatusProcessing
			e.UpdatedAt = now
		}
		return nil
	})
	return claimed, err
}

// ReleaseStale resets processing entries whose claim is older than the cutoff.
// A worker that died between claim and write-back leaves such rows behind.
func (r *GormOutboxRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EmailOutboxModel{}).
		Where("status = ? AND updated_at < ?", notification.OutboxStatusProcessing, before).
		Updates(map[string]any{
			"status":     notification.OutboxStatusPending,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// Update writes back an entry after a delivery attempt
func (r *GormOutboxRepository) Update(ctx context.Context, entry *notification.OutboxEntry) error {
	return r.db.WithContext(ctx).
		Model(&models.EmailOutboxModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{
			"status":        entry.Status,
			"retry_count":   entry.RetryCount,
			"last_error":    entry.LastError,
			"next_retry_at": entry.NextRetryAt,
			"processed_at":  entry.ProcessedAt,
			"updated_at":    entry.UpdatedAt,
		}).Error
}

// DeleteSentBefore removes delivered entries processed before the cutoff
func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", notification.OutboxStatusSent, before).
		Delete(&models.EmailOutboxModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns count of entries for each status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[notification.OutboxStatus]int64, error) {
	type statusCount struct {
		Status notification.OutboxStatus
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.EmailOutboxModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	counts := make(map[notification.OutboxStatus]int64, len(results))
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

func toOutboxEntries(rows []models.EmailOutboxModel) []*notification.OutboxEntry {
	entries := make([]*notification.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries
}

var _ notification.OutboxRepository = (*GormOutboxRepository)(nil)
