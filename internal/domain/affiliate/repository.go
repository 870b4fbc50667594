package affiliate

import (
	"context"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Repository persists invites. Create returns shared.ErrAlreadyExists when a
// unique column (invite_code, referral_code) collides.
type Repository interface {
	Create(ctx context.Context, a *Affiliate) error
	Update(ctx context.Context, a *Affiliate) error
	FindByID(ctx context.Context, id uuid.UUID) (*Affiliate, error)
	FindByInviteCode(ctx context.Context, code string) (*Affiliate, error)
	ExistsByInviteCode(ctx context.Context, code string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter shared.Filter) ([]*Affiliate, int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
