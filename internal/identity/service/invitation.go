package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/mailer"
	"github.com/mantenix/identity/internal/identity/ratelimit"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/cryptox"
	"github.com/mantenix/identity/pkg/idx"
	"github.com/mantenix/identity/pkg/slogx"
)

// Rate limit key scopes. The default, global, bounds invitation creation
// across all admins with a single shared counter; per-admin gives each admin
// their own window.
const (
	KeyScopeGlobal   = "global"
	KeyScopePerAdmin = "per-admin"
)

const createInvitationKey = "create_invitation"

// InvitationService owns the invitation lifecycle: create, resend, revoke,
// list, and accept. Every mutating admin operation re-checks the caller's role
// through the Guard before touching the limiter or the store.
type InvitationService struct {
	Store  store.Store
	Mailer mailer.Mailer
	Guard  *Guard

	// Limiter bounds invitation creation. Resend and revoke are not limited.
	Limiter *ratelimit.Limiter

	// KeyScope selects the limiter key: KeyScopeGlobal or KeyScopePerAdmin.
	KeyScope string

	// CallbackBaseURL is the public origin of the acceptance page, e.g.
	// "https://gmao.example.com". The invitation id is appended as a query
	// parameter.
	CallbackBaseURL string

	// InviteTTL overrides domain.DefaultInvitationTTL when positive.
	InviteTTL time.Duration

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

func (s *InvitationService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *InvitationService) ttl() time.Duration {
	if s.InviteTTL > 0 {
		return s.InviteTTL
	}
	return domain.DefaultInvitationTTL
}

func (s *InvitationService) limiterKey(adminID string) string {
	if s.KeyScope == KeyScopePerAdmin {
		return createInvitationKey + ":" + adminID
	}
	return createInvitationKey
}

func (s *InvitationService) callbackURL(inviteID string) string {
	return s.CallbackBaseURL + "/auth/invite?invitation=" + inviteID
}

// Create sends a new invitation. Order matters: the admin guard runs first,
// then the rate limiter, then the insert, then the email. A failed email
// triggers a best-effort compensating revoke so the pending-email slot is
// freed, and the call still fails with ErrInvitationEmailFailed.
func (s *InvitationService) Create(ctx context.Context, email string, role domain.Role) (string, error) {
	log := slogx.FromContext(ctx)

	admin, err := s.Guard.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	if !role.Valid() {
		return "", ErrInvalidRole
	}

	now := s.clock()
	if res := s.Limiter.Allow(s.limiterKey(admin.ID)); !res.Allowed {
		return "", &RateLimitError{RetryAfter: res.RetryAfter(now)}
	}

	id, err := s.Store.Invitations().CreateInvitation(ctx, store.CreateInvitationParams{
		Email:     email,
		Role:      role,
		InvitedBy: admin.ID,
		ExpiresAt: now.Add(s.ttl()),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", fmt.Errorf("%w: a pending invitation for this email already exists", ErrInvitationCreateFailed)
		}
		return "", fmt.Errorf("%w: %v", ErrInvitationCreateFailed, err)
	}

	if err := s.Mailer.SendInvitation(ctx, mailer.Invitation{
		Email:       email,
		Role:        role,
		InviteID:    id,
		CallbackURL: s.callbackURL(id),
	}); err != nil {
		// Compensate so the email can be re-invited right away. The revoke is
		// best effort: a failure here leaves a pending record behind, which
		// expires on its own, so we only log it.
		if _, rerr := s.Store.Invitations().RevokeInvitation(ctx, id); rerr != nil {
			log.Error("compensating revoke after mail failure failed",
				"invitation_id", id, "err", rerr)
		}
		log.Warn("invitation email dispatch failed", "invitation_id", id, "err", err)
		return "", fmt.Errorf("%w: %v", ErrInvitationEmailFailed, err)
	}

	log.Info("invitation created", "invitation_id", id, "role", role, "invited_by", admin.ID)
	return id, nil
}

// Resend pushes the expiry of a pending or expired invitation forward by a
// full TTL and re-dispatches the email. Unlike Create, a mail failure here
// does NOT revoke: the invitation already existed, and the recipient may
// still hold a working link from the first send.
func (s *InvitationService) Resend(ctx context.Context, id string) (string, error) {
	log := slogx.FromContext(ctx)

	if _, err := s.Guard.RequireAdmin(ctx); err != nil {
		return "", err
	}

	now := s.clock()

	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvitationNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrInvitationResendFailed, err)
	}
	if !domain.Actionable(inv.Status, inv.CurrentStatusAt(now)) {
		return "", ErrInvitationNotResendable
	}

	renewedID, err := s.Store.Invitations().RenewInvitation(ctx, id, now.Add(s.ttl()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvitationNotResendable
		}
		return "", fmt.Errorf("%w: %v", ErrInvitationResendFailed, err)
	}

	if err := s.Mailer.SendInvitation(ctx, mailer.Invitation{
		Email:       inv.Email,
		Role:        inv.Role,
		InviteID:    renewedID,
		CallbackURL: s.callbackURL(renewedID),
	}); err != nil {
		log.Warn("invitation resend email failed", "invitation_id", renewedID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrInvitationEmailFailed, err)
	}

	log.Info("invitation resent", "invitation_id", renewedID)
	return renewedID, nil
}

// Revoke cancels a pending or expired invitation. No email is sent.
func (s *InvitationService) Revoke(ctx context.Context, id string) (string, error) {
	if _, err := s.Guard.RequireAdmin(ctx); err != nil {
		return "", err
	}

	revokedID, err := s.Store.Invitations().RevokeInvitation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvitationNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrInvitationRevokeFailed, err)
	}

	slogx.FromContext(ctx).Info("invitation revoked", "invitation_id", revokedID)
	return revokedID, nil
}

// List returns the management projections, most recent first. current_status
// is derived against the service clock; a pending invitation past its expiry
// lists as expired without any write.
func (s *InvitationService) List(ctx context.Context) ([]domain.Projection, error) {
	if _, err := s.Guard.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.Store.Invitations().ListInvitations(ctx, s.clock())
}

// Accept finishes the invitation flow: the recipient picks a password and the
// service provisions their profile with the invited role. Runs in a single
// transaction so a profile can never exist for an unaccepted invitation.
func (s *InvitationService) Accept(ctx context.Context, id, fullName, password string) (domain.Profile, error) {
	if len(password) < 8 {
		return domain.Profile{}, ErrInvalidPassword
	}

	now := s.clock()

	// Hash outside the transaction; argon2 is deliberately slow.
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	var profile domain.Profile
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().GetInvitationByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvitationNotFound
			}
			return err
		}
		if inv.CurrentStatusAt(now) != domain.StatusPending {
			return ErrInvitationNotPending
		}

		profile = domain.Profile{
			ID:           idx.New().String(),
			Email:        inv.Email,
			FullName:     &fullName,
			Role:         inv.Role,
			PasswordHash: hash,
		}
		if err := tx.Profiles().CreateProfile(ctx, profile); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailAlreadyRegistered
			}
			return err
		}

		if err := tx.Invitations().MarkInvitationAccepted(ctx, id, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvitationNotPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Profile{}, err
	}

	slogx.FromContext(ctx).Info("invitation accepted",
		"invitation_id", id, "profile_id", profile.ID, "role", profile.Role)
	return profile, nil
}
