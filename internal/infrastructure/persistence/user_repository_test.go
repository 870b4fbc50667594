package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

func newTestUser(t *testing.T, email string) *identity.User {
	t.Helper()
	u, err := identity.NewUserWithHash(email, "$2a$12$abcdefghijklmnopqrstuv", "Test User", identity.RoleAffiliate)
	require.NoError(t, err)
	return u
}

func TestGormUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	user := newTestUser(t, "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", found.Email)
		assert.Equal(t, identity.RoleAffiliate, found.Role)
		assert.Empty(t, found.StripeCustomerID)
	})

	t.Run("by email is case-insensitive", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  ALICE@example.com ")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("exists by email", func(t *testing.T) {
		ok, err := repo.ExistsByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, newTestUser(t, "alice@example.com"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	user := newTestUser(t, "carol@example.com")
	require.NoError(t, repo.Create(ctx, user))

	user.LinkStripeCustomer("cus_123")
	user.RecordLogin(time.Now().UTC())
	require.NoError(t, repo.Update(ctx, user))

	found, err := repo.FindByStripeCustomerID(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.NotNil(t, found.LastLoginAt)

	missing := newTestUser(t, "ghost@example.com")
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrNotFound)
}

func TestGormUserRepository_EmptyStripeCustomersDoNotCollide(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, newTestUser(t, "one@example.com")))
	require.NoError(t, repo.Create(ctx, newTestUser(t, "two@example.com")))

	counts, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[identity.RoleAffiliate])
}

func TestGormUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	user := newTestUser(t, "dave@example.com")
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), shared.ErrNotFound)
}

func TestGormProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProfileRepository(newTestDB(t))

	userID, affiliateID := uuid.New(), uuid.New()
	profile, err := identity.NewProfile(userID, affiliateID, "Erin", "ERINAB12")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, profile))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, affiliateID, found.AffiliateID)

	found, err = repo.FindByReferralCode(ctx, "erinab12")
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)

	dup, err := identity.NewProfile(uuid.New(), uuid.New(), "Other", "ERINAB12")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
}
