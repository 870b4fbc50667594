package persistence

import (
	"context"

	"github.com/tdhub/commandhub/internal/domain/mailing"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMailingRepository implements mailing.Repository using GORM
type GormMailingRepository struct {
	db *gorm.DB
}

// NewGormMailingRepository creates a new GormMailingRepository
func NewGormMailingRepository(db *gorm.DB) *GormMailingRepository {
	return &GormMailingRepository{db: db}
}

// Create subscribes an address; an existing address is left untouched
func (r *GormMailingRepository) Create(ctx context.Context, s *mailing.Subscriber) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(models.MailingSubscriberModelFromDomain(s))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Count returns the number of subscribers
func (r *GormMailingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MailingSubscriberModel{}).Count(&count).Error
	return count, err
}

var _ mailing.Repository = (*GormMailingRepository)(nil)
