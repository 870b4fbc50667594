package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAffiliateRepository implements affiliate.Repository using GORM
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewGormAffiliateRepository creates a new GormAffiliateRepository
func NewGormAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: tx}
}

// Create inserts an invite. Code collisions yield shared.ErrAlreadyExists.
func (r *GormAffiliateRepository) Create(ctx context.Context, a *affiliate.Affiliate) error {
	if err := r.db.WithContext(ctx).Create(models.AffiliateModelFromDomain(a)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists status changes of an invite
func (r *GormAffiliateRepository) Update(ctx context.Context, a *affiliate.Affiliate) error {
	result := r.db.WithContext(ctx).
		Model(&models.AffiliateModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":           a.Status,
			"accepted_at":      a.AcceptedAt,
			"accepted_user_id": a.AcceptedUserID,
			"updated_at":       a.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an invite by ID
func (r *GormAffiliateRepository) FindByID(ctx context.Context, id uuid.UUID) (*affiliate.Affiliate, error) {
	var model models.AffiliateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByInviteCode finds an invite by its code
func (r *GormAffiliateRepository) FindByInviteCode(ctx context.Context, code string) (*affiliate.Affiliate, error) {
	var model models.AffiliateModel
	if err := r.db.WithContext(ctx).
		Where("invite_code = ?", affiliate.NormalizeCode(code)).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByInviteCode checks whether an invite code is taken
func (r *GormAffiliateRepository) ExistsByInviteCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "invite_code = ?", code)
}

// ExistsByReferralCode checks whether a referral code is taken by an invite or a profile
func (r *GormAffiliateRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	taken, err := r.exists(ctx, "referral_code = ?", code)
	if err != nil || taken {
		return taken, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(&models.ProfileModel{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *GormAffiliateRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AffiliateModel{}).
		Where(query, args...).
		Count(&count).Error
	return count > 0, err
}

// List returns invites newest first, filtered by status and a free-text search
// over name, email and invite code
func (r *GormAffiliateRepository) List(ctx context.Context, filter shared.Filter) ([]*affiliate.Affiliate, int64, error) {
	filter = filter.Normalize()

	query := r.db.WithContext(ctx).Model(&models.AffiliateModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(invite_code) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AffiliateModel
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*affiliate.Affiliate, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, total, nil
}

// CountByStatus returns the number of invites per status
func (r *GormAffiliateRepository) CountByStatus(ctx context.Context) (map[affiliate.Status]int64, error) {
	type statusCount struct {
		Status affiliate.Status
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.AffiliateModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	counts := make(map[affiliate.Status]int64, len(results))
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

var _ affiliate.Repository = (*GormAffiliateRepository)(nil)
