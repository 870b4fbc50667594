// Package identity handles login, logout and session validation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrSessionInvalid     = shared.NewDomainError("UNAUTHORIZED", "Authentication required")
)

// AuthService handles authentication operations
type AuthService struct {
	users      identity.UserRepository
	profiles   identity.ProfileRepository
	sessions   *auth.SessionService
	revocation auth.RevocationList
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	profiles identity.ProfileRepository,
	sessions *auth.SessionService,
	revocation auth.RevocationList,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		profiles:   profiles,
		sessions:   sessions,
		revocation: revocation,
		logger:     logger,
		now:        time.Now,
	}
}

// SessionTTL returns the lifetime of issued sessions
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Failed to load user during login", zap.Error(err))
			return nil, err
		}
		identity.CompareDummyPassword(input.Password)
		s.logger.Warn("Login attempt for unknown email", zap.String("ip", input.IP))
		return nil, ErrInvalidCredentials
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt",
			zap.String("user_id", user.ID.String()),
			zap.String("ip", input.IP))
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Issue(auth.SessionUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to issue session", zap.Error(err))
		return nil, shared.NewDomainErrorWithCause("INTERNAL_ERROR", "Failed to create session", err)
	}

	user.RecordLogin(s.now().UTC())
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		Token:     session.Token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      s.userInfo(ctx, user),
	}, nil
}

// ValidateSession verifies the token and rejects revoked sessions
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause(ErrSessionInvalid.Code, ErrSessionInvalid.Message, err)
	}
	if s.revocation != nil && claims.ID != "" {
		revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("Session revocation lookup failed", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, shared.NewDomainErrorWithCause(ErrSessionInvalid.Code, ErrSessionInvalid.Message, auth.ErrTokenRevoked)
		}
	}
	return claims, nil
}

// Logout revokes the session until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || s.revocation == nil {
		return nil
	}
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.revocation.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// CurrentUser returns the signed-in user's profile
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := s.userInfo(ctx, user)
	return &info, nil
}

func (s *AuthService) userInfo(ctx context.Context, user *identity.User) UserInfo {
	info := ToUserInfo(user)
	if user.Role == identity.RoleAffiliate && s.profiles != nil {
		if p, err := s.profiles.FindByUserID(ctx, user.ID); err == nil {
			info.ReferralCode = p.ReferralCode
		}
	}
	return info
}
