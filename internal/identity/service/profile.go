package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/cryptox"
	"github.com/mantenix/identity/pkg/idx"
	"github.com/mantenix/identity/pkg/slogx"
)

// ProfileService reads profiles for authenticated callers and handles the
// first-boot admin seed.
type ProfileService struct {
	Store store.Store
}

// EnsureProfile returns the profile for userID, creating a default operator
// profile when an authenticated caller has none yet. Covers accounts
// provisioned out of band (for example imported from a previous system) that
// hold a valid session without a profile row.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email string) (domain.Profile, error) {
	profile, err := s.Store.Profiles().GetProfileByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	profile = domain.Profile{
		ID:    userID,
		Email: email,
		Role:  domain.RoleOperator,
	}
	if err := s.Store.Profiles().CreateProfile(ctx, profile); err != nil {
		// Lost a race with a concurrent request for the same user.
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.Store.Profiles().GetProfileByID(ctx, userID)
		}
		return domain.Profile{}, fmt.Errorf("provision profile: %w", err)
	}

	slogx.FromContext(ctx).Info("profile auto-provisioned",
		"profile_id", userID, "role", domain.RoleOperator)
	return profile, nil
}

// SeedAdmin provisions the first admin account when the profile table is
// empty. Idempotent: a non-empty table is a no-op. When no password is
// configured a random one is generated and logged once, to be rotated at
// first sign-in. Returns whether a profile was created.
func (s *ProfileService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}

	empty, err := s.Store.Profiles().IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("check profiles: %w", err)
	}
	if !empty {
		return false, nil
	}

	generated := false
	if password == "" {
		password, err = cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return false, fmt.Errorf("generate seed password: %w", err)
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}

	profile := domain.Profile{
		ID:           idx.New().String(),
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	if err := s.Store.Profiles().CreateProfile(ctx, profile); err != nil {
		// Lost a race with another instance seeding concurrently.
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create seed admin: %w", err)
	}

	log := slogx.FromContext(ctx)
	log.Info("seed admin created", "profile_id", profile.ID)
	if generated {
		log.Warn("seed admin password was generated, rotate it after first sign-in",
			"password", password)
	}
	return true, nil
}
