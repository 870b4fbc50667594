package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/tdhub/commandhub/internal/domain/identity"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin is one configured admin account
type SeedAdmin struct {
	Email        string
	PasswordHash string
	DisplayName  string
}

// ParseSeedUsers parses "email|bcrypt-hash|Display Name" entries
func ParseSeedUsers(entries []string) ([]SeedAdmin, error) {
	out := make([]SeedAdmin, 0, len(entries))
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("seed user %d: expected email|bcrypt-hash|name", i+1)
		}
		hash := strings.TrimSpace(parts[1])
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("seed user %d: password must be a bcrypt hash: %w", i+1, err)
		}
		admin := SeedAdmin{Email: strings.TrimSpace(parts[0]), PasswordHash: hash}
		if len(parts) == 3 {
			admin.DisplayName = strings.TrimSpace(parts[2])
		}
		out = append(out, admin)
	}
	return out, nil
}

// SeedAdmins creates the configured admins that do not exist yet. Existing
// accounts are left untouched. It returns the number of users created.
func (s *AuthService) SeedAdmins(ctx context.Context, admins []SeedAdmin) (int, error) {
	created := 0
	for _, a := range admins {
		user, err := identity.NewUserWithHash(a.Email, a.PasswordHash, a.DisplayName, identity.RoleAdmin)
		if err != nil {
			return created, fmt.Errorf("seed user %s: %w", a.Email, err)
		}
		exists, err := s.users.ExistsByEmail(ctx, user.Email)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := s.users.Create(ctx, user); err != nil {
			return created, fmt.Errorf("seed user %s: %w", user.Email, err)
		}
		created++
		s.logger.Info("Seeded admin user", zap.String("email", user.Email))
	}
	return created, nil
}
