package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users. Lookups return shared.ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ProfileRepository persists affiliate profiles
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	FindByReferralCode(ctx context.Context, code string) (*Profile, error)
}
