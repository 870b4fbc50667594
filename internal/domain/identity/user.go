package identity

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tdhub/commandhub/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is the coarse permission level of a user
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAffiliate Role = "affiliate"
	RoleCustomer  Role = "customer"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAffiliate, RoleCustomer:
		return true
	}
	return false
}

const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is an identity that can hold a session and a subscription.
// Email and ID never change after creation.
type User struct {
	shared.BaseAggregateRoot
	Email            string
	PasswordHash     string
	DisplayName      string
	Role             Role
	StripeCustomerID string
	ReferredByCode   string
	LastLoginAt      *time.Time
}

// NewUser creates a user with a hashed password
func NewUser(email, password, displayName string, role Role) (*User, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}
	return NewUserWithHash(email, string(hash), displayName, role)
}

// NewUserWithHash creates a user from an existing bcrypt hash (seeded accounts)
func NewUserWithHash(email, passwordHash, displayName string, role Role) (*User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	if len(displayName) > 200 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 200 characters")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      passwordHash,
		DisplayName:       strings.TrimSpace(displayName),
		Role:              role,
	}, nil
}

// NewCustomer creates a password-less user from a completed checkout
func NewCustomer(email, stripeCustomerID string) (*User, error) {
	u, err := NewUserWithHash(email, "", "", RoleCustomer)
	if err != nil {
		return nil, err
	}
	u.StripeCustomerID = stripeCustomerID
	return u, nil
}

// VerifyPassword reports whether password matches. Users without a password
// never match but still pay for a bcrypt comparison.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		CompareDummyPassword(password)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// LinkStripeCustomer records the Stripe customer id once. It returns true when the user changed.
func (u *User) LinkStripeCustomer(customerID string) bool {
	if customerID == "" || u.StripeCustomerID != "" {
		return false
	}
	u.StripeCustomerID = customerID
	u.Touch()
	return true
}

// SetReferredBy stores the referral code a customer signed up with, first one wins
func (u *User) SetReferredBy(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || u.ReferredByCode != "" {
		return false
	}
	u.ReferredByCode = code
	u.Touch()
	return true
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail trims, lower-cases and validates an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email is required")
	}
	if len(email) > 200 {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return "", shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return email, nil
}

// ValidatePassword checks the password policy
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return h
})

// CompareDummyPassword burns the same bcrypt work as a real comparison so a
// login for an unknown email takes as long as a wrong password.
func CompareDummyPassword(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}
