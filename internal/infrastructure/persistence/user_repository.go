package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: tx}
}

// Create inserts a user. A duplicate email or Stripe customer yields shared.ErrAlreadyExists.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	if err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update overwrites every mutable column of an existing user
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return shared.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a user by ID
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByStripeCustomerID finds the user linked to a Stripe customer
func (r *GormUserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks whether an email is registered
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, err
}

// CountByRole returns the number of users per role
func (r *GormUserRepository) CountByRole(ctx context.Context) (map[identity.Role]int64, error) {
	type roleCount struct {
		Role  identity.Role
		Count int64
	}
	var results []roleCount
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	counts := make(map[identity.Role]int64, len(results))
	for _, rc := range results {
		counts[rc.Role] = rc.Count
	}
	return counts, nil
}

// GormProfileRepository implements identity.ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormProfileRepository) WithTx(tx *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: tx}
}

// Create inserts a profile
func (r *GormProfileRepository) Create(ctx context.Context, profile *identity.Profile) error {
	if err := r.db.WithContext(ctx).Create(models.ProfileModelFromDomain(profile)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByUserID finds the profile of a user
func (r *GormProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*identity.Profile, error) {
	var model models.ProfileModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByReferralCode finds a profile by its referral code
func (r *GormProfileRepository) FindByReferralCode(ctx context.Context, code string) (*identity.Profile, error) {
	var model models.ProfileModel
	if err := r.db.WithContext(ctx).
		Where("referral_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

var (
	_ identity.UserRepository    = (*GormUserRepository)(nil)
	_ identity.ProfileRepository = (*GormProfileRepository)(nil)
)
