package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/httpx"
)

// Guard gates admin-only operations. It is stateless and reads the profile
// store on every check so a demoted admin loses access immediately.
//
// It runs in two places on purpose: as the RequireRole HTTP middleware (via
// ResolveRole) and again inside every mutating invitation operation, so a
// caller reaching the service without going through the router is still
// rejected before any limiter or store side effect.
type Guard struct {
	Store store.Store
}

// RequireAdmin resolves the caller from ctx and returns their profile iff
// they are an authenticated admin.
func (g *Guard) RequireAdmin(ctx context.Context) (domain.Profile, error) {
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		return domain.Profile{}, ErrUnauthenticated
	}

	profile, err := g.Store.Profiles().GetProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, ErrUnauthenticated
		}
		return domain.Profile{}, fmt.Errorf("guard: load profile: %w", err)
	}

	if profile.Role != domain.RoleAdmin {
		return domain.Profile{}, ErrForbidden
	}
	return profile, nil
}

// ResolveRole implements httpx.RoleResolver for the router middleware.
func (g *Guard) ResolveRole(ctx context.Context, userID string) (string, error) {
	profile, err := g.Store.Profiles().GetProfileByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.Role.String(), nil
}
