package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/ratelimit"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/cryptox"
	"github.com/mantenix/identity/pkg/jwtx"
	"github.com/mantenix/identity/pkg/slogx"
)

const authAttemptKey = "auth_attempt"

// AuthService issues session tokens for password sign-in. Attempts are gated
// by a fixed-window limiter keyed per email, so a lockout on one account does
// not block the rest.
type AuthService struct {
	Store   store.Store
	Signer  *jwtx.Signer
	Limiter *ratelimit.Limiter

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

func (s *AuthService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SignIn verifies the credentials and returns a session token plus the
// caller's profile. Unknown emails and wrong passwords both surface as
// ErrInvalidCredentials; the limiter is consulted before any store read so
// enumeration via timing stays bounded.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, domain.Profile, error) {
	log := slogx.FromContext(ctx)

	now := s.clock()
	if res := s.Limiter.Allow(authAttemptKey + ":" + email); !res.Allowed {
		return "", domain.Profile{}, &RateLimitError{RetryAfter: res.RetryAfter(now)}
	}

	profile, err := s.Store.Profiles().GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Profile{}, ErrInvalidCredentials
		}
		return "", domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	if err := cryptox.VerifyPassword(password, profile.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Warn("sign-in rejected", "profile_id", profile.ID)
			return "", domain.Profile{}, ErrInvalidCredentials
		}
		return "", domain.Profile{}, fmt.Errorf("verify password: %w", err)
	}

	token, err := s.Signer.Sign(profile.ID, profile.Email)
	if err != nil {
		return "", domain.Profile{}, fmt.Errorf("sign session token: %w", err)
	}

	log.Info("sign-in", "profile_id", profile.ID, "role", profile.Role)
	return token, profile, nil
}
