package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

func TestNewUser(t *testing.T) {
	t.Run("hashes password and normalizes email", func(t *testing.T) {
		u, err := NewUser("  Alice@Example.COM ", "correct-horse", "Alice", RoleAffiliate)
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", u.Email)
		assert.NotEqual(t, "correct-horse", u.PasswordHash)
		assert.True(t, u.VerifyPassword("correct-horse"))
		assert.False(t, u.VerifyPassword("wrong-horse"))
		assert.Equal(t, RoleAffiliate, u.Role)
		assert.NotEqual(t, uuid.Nil, u.ID)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("a@example.com", "short", "", RoleAffiliate)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_PASSWORD", de.Code)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewUserWithHash("not-an-email", "", "", RoleAdmin)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid email")
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewUserWithHash("a@example.com", "", "", Role("root"))
		require.Error(t, err)
	})
}

func TestNewCustomer(t *testing.T) {
	u, err := NewCustomer("buyer@example.com", "cus_123")
	require.NoError(t, err)

	assert.Equal(t, RoleCustomer, u.Role)
	assert.Equal(t, "cus_123", u.StripeCustomerID)
	assert.False(t, u.VerifyPassword(""), "password-less users cannot log in")
}

func TestUser_LinkStripeCustomer(t *testing.T) {
	u, err := NewUserWithHash("a@example.com", "", "", RoleCustomer)
	require.NoError(t, err)

	assert.False(t, u.LinkStripeCustomer(""))
	assert.True(t, u.LinkStripeCustomer("cus_1"))
	assert.False(t, u.LinkStripeCustomer("cus_2"), "an existing customer id is never replaced")
	assert.Equal(t, "cus_1", u.StripeCustomerID)
}

func TestUser_SetReferredBy(t *testing.T) {
	u, err := NewUserWithHash("a@example.com", "", "", RoleCustomer)
	require.NoError(t, err)

	assert.True(t, u.SetReferredBy(" alice1a2b "))
	assert.Equal(t, "ALICE1A2B", u.ReferredByCode)
	assert.False(t, u.SetReferredBy("OTHER"))
}

func TestUser_RecordLogin(t *testing.T) {
	u, err := NewUserWithHash("a@example.com", "", "", RoleAdmin)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u.RecordLogin(at)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, at, *u.LastLoginAt)
}

func TestNewProfile(t *testing.T) {
	_, err := NewProfile(uuid.Nil, uuid.New(), "A", "ALICE1234")
	assert.Error(t, err)

	_, err = NewProfile(uuid.New(), uuid.New(), "A", " ")
	assert.Error(t, err)

	p, err := NewProfile(uuid.New(), uuid.New(), " Alice ", "ALICE1234")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
}

func TestCompareDummyPassword(t *testing.T) {
	start := time.Now()
	CompareDummyPassword("anything")
	assert.Greater(t, time.Since(start), time.Millisecond)
}

func TestUser_VerifyPassword_PasswordlessCostsBcrypt(t *testing.T) {
	customer, err := NewCustomer("buyer@example.com", "cus_123")
	require.NoError(t, err)
	CompareDummyPassword("warm-up")

	start := time.Now()
	assert.False(t, customer.VerifyPassword("guess-password"))
	assert.Greater(t, time.Since(start), time.Millisecond)
}
