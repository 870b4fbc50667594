// Package affiliate issues, accepts and revokes affiliate invites.
package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrCodeGenerationFailed = shared.NewDomainError("CODE_GENERATION_FAILED", "Could not generate a unique invite code")
	ErrEmailTaken           = shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
)

// DefaultMaxCodeAttempts bounds the collision retries of code generation
const DefaultMaxCodeAttempts = 10

// Config holds invite settings
type Config struct {
	InviteTTL       time.Duration
	MaxCodeAttempts int
}

// Service handles the invite lifecycle
type Service struct {
	invites  affiliate.Repository
	users    identity.UserRepository
	profiles identity.ProfileRepository
	codes    *affiliate.CodeGenerator
	events   shared.EventPublisher
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an affiliate service. events may be nil.
func NewService(
	invites affiliate.Repository,
	users identity.UserRepository,
	profiles identity.ProfileRepository,
	codes *affiliate.CodeGenerator,
	events shared.EventPublisher,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = affiliate.DefaultInviteTTL
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultMaxCodeAttempts
	}
	if codes == nil {
		codes = affiliate.NewCodeGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		invites:  invites,
		users:    users,
		profiles: profiles,
		codes:    codes,
		events:   events,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInvite generates collision-checked codes and stores a pending invite.
// A unique violation on insert counts as a collision and consumes an attempt.
// Emails that already belong to an account, checkout customers included,
// cannot be invited.
func (s *Service) CreateInvite(ctx context.Context, in CreateInviteInput) (*InviteView, error) {
	email, err := identity.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	for attempt := 1; attempt <= s.config.MaxCodeAttempts; attempt++ {
		inviteCode, referralCode, err := s.candidateCodes(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		if inviteCode == "" {
			s.logger.Debug("Invite code collision", zap.Int("attempt", attempt))
			continue
		}

		invite, err := affiliate.NewAffiliate(in.Name, email, inviteCode, referralCode, in.CreatedBy, s.now(), s.config.InviteTTL)
		if err != nil {
			return nil, err
		}

		if err := s.invites.Create(ctx, invite); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				s.logger.Debug("Invite code collided on insert", zap.Int("attempt", attempt))
				continue
			}
			return nil, fmt.Errorf("failed to save invite: %w", err)
		}

		s.publish(ctx, invite.GetDomainEvents()...)
		invite.ClearDomainEvents()

		s.logger.Info("Affiliate invite created",
			zap.String("invite_id", invite.ID.String()),
			zap.String("email", invite.Email),
			zap.Int("attempts", attempt))

		view := toInviteView(invite, s.now())
		return &view, nil
	}

	s.logger.Error("Exhausted invite code attempts", zap.Int("attempts", s.config.MaxCodeAttempts))
	return nil, ErrCodeGenerationFailed
}

// candidateCodes returns a pair of codes unused in the store, or empty
// strings when either one already exists
func (s *Service) candidateCodes(ctx context.Context, name string) (string, string, error) {
	inviteCode, err := s.codes.InviteCode()
	if err != nil {
		return "", "", err
	}
	referralCode, err := s.codes.ReferralCode(name)
	if err != nil {
		return "", "", err
	}

	taken, err := s.invites.ExistsByInviteCode(ctx, inviteCode)
	if err != nil {
		return "", "", err
	}
	if taken {
		return "", "", nil
	}
	taken, err = s.invites.ExistsByReferralCode(ctx, referralCode)
	if err != nil {
		return "", "", err
	}
	if taken {
		return "", "", nil
	}
	return inviteCode, referralCode, nil
}

// AcceptInvite turns a pending invite into an affiliate account. Guards run in
// order: existence, status, expiry. No identity is created when a guard fails.
func (s *Service) AcceptInvite(ctx context.Context, in AcceptInviteInput) (*AcceptResult, error) {
	invite, err := s.invites.FindByInviteCode(ctx, affiliate.NormalizeCode(in.Code))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, affiliate.ErrInviteNotFound
		}
		return nil, err
	}

	now := s.now()
	if err := invite.CheckAcceptable(now); err != nil {
		s.logger.Info("Invite acceptance rejected",
			zap.String("invite_id", invite.ID.String()),
			zap.String("reason", err.Error()))
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, invite.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = invite.Name
	}
	user, err := identity.NewUser(invite.Email, in.Password, displayName, identity.RoleAffiliate)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.createProfile(ctx, user, invite); err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("Failed to roll back user after profile failure",
				zap.String("user_id", user.ID.String()),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := invite.Accept(user.ID, now); err != nil {
		return nil, err
	}
	if err := s.invites.Update(ctx, invite); err != nil {
		s.logger.Error("Failed to mark invite accepted",
			zap.String("invite_id", invite.ID.String()),
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update invite: %w", err)
	}

	s.publish(ctx, invite.GetDomainEvents()...)
	invite.ClearDomainEvents()

	s.logger.Info("Affiliate invite accepted",
		zap.String("invite_id", invite.ID.String()),
		zap.String("user_id", user.ID.String()))

	return &AcceptResult{
		UserID:       user.ID,
		Email:        user.Email,
		ReferralCode: invite.ReferralCode,
	}, nil
}

func (s *Service) createProfile(ctx context.Context, user *identity.User, invite *affiliate.Affiliate) error {
	profile, err := identity.NewProfile(user.ID, invite.ID, user.DisplayName, invite.ReferralCode)
	if err != nil {
		return err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// RevokeInvite withdraws a pending invite
func (s *Service) RevokeInvite(ctx context.Context, id uuid.UUID) (*InviteView, error) {
	invite, err := s.invites.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, affiliate.ErrInviteNotFound
		}
		return nil, err
	}
	wasRevoked := invite.Status == affiliate.StatusRevoked
	if err := invite.Revoke(s.now()); err != nil {
		return nil, err
	}
	if !wasRevoked {
		if err := s.invites.Update(ctx, invite); err != nil {
			return nil, fmt.Errorf("failed to update invite: %w", err)
		}
		s.publish(ctx, invite.GetDomainEvents()...)
		invite.ClearDomainEvents()
		s.logger.Info("Affiliate invite revoked", zap.String("invite_id", invite.ID.String()))
	}
	view := toInviteView(invite, s.now())
	return &view, nil
}

// ListInvites returns a page of invites, newest first
func (s *Service) ListInvites(ctx context.Context, filter shared.Filter) (shared.Paginated[InviteView], error) {
	filter = filter.Normalize()
	if filter.Status != "" && !affiliate.Status(filter.Status).IsValid() {
		return shared.Paginated[InviteView]{}, shared.NewDomainError("INVALID_STATUS", "Unknown invite status")
	}
	items, total, err := s.invites.List(ctx, filter)
	if err != nil {
		return shared.Paginated[InviteView]{}, err
	}
	now := s.now()
	views := make([]InviteView, 0, len(items))
	for _, a := range items {
		views = append(views, toInviteView(a, now))
	}
	return shared.NewPaginated(views, total, filter.Page, filter.PageSize), nil
}

// LookupInvite returns the public view of an invite code
func (s *Service) LookupInvite(ctx context.Context, code string) (*PublicInviteView, error) {
	invite, err := s.invites.FindByInviteCode(ctx, affiliate.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, affiliate.ErrInviteNotFound
		}
		return nil, err
	}
	return &PublicInviteView{
		Name:      invite.Name,
		Email:     invite.Email,
		Status:    string(invite.Status),
		Expired:   invite.IsExpired(s.now()),
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// CountByStatus returns invite counts for the dashboard
func (s *Service) CountByStatus(ctx context.Context) (map[affiliate.Status]int64, error) {
	return s.invites.CountByStatus(ctx)
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish affiliate events", zap.Error(err))
	}
}
