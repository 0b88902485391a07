package store

import (
	"context"
	"errors"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for dev
// and tests, postgres for production) implement this. Sub-repositories keep
// concerns tidy and make transaction scoping explicit.
type Store interface {
	Invitations() Invitations
	Profiles() Profiles

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. Prefer this over Tx for multi-step operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store scoped to a single transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// CreateInvitationParams are the caller-supplied fields of a new invitation.
// The driver assigns the identifier and the initial pending status.
type CreateInvitationParams struct {
	Email     string
	Role      domain.Role
	InvitedBy string
	ExpiresAt time.Time
}

type Invitations interface {
	// CreateInvitation inserts a pending invitation and returns its id.
	// Returns ErrAlreadyExists when a pending invitation for the same email
	// exists (enforced by a partial unique index, not by callers).
	CreateInvitation(ctx context.Context, p CreateInvitationParams) (string, error)

	// GetInvitationByID returns an invitation by id.
	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// RenewInvitation pushes the expiry forward and, if the invitation had
	// expired, returns its status to pending. Only pending/expired records
	// can be renewed; anything else reports ErrNotFound.
	RenewInvitation(ctx context.Context, id string, expiresAt time.Time) (string, error)

	// RevokeInvitation marks a pending or expired invitation revoked and
	// returns its id as acknowledgement.
	RevokeInvitation(ctx context.Context, id string) (string, error)

	// MarkInvitationAccepted flips a still-pending, unexpired invitation to
	// accepted. now is the acceptance instant used for both the expiry guard
	// and accepted_at.
	MarkInvitationAccepted(ctx context.Context, id string, now time.Time) error

	// ListInvitations returns the management projections, most recent first.
	// current_status is derived at read time against the supplied clock; no
	// write happens on this path.
	ListInvitations(ctx context.Context, now time.Time) ([]domain.Projection, error)
}

type Profiles interface {
	// GetProfileByID returns a profile by id.
	GetProfileByID(ctx context.Context, id string) (domain.Profile, error)

	// GetProfileByEmail is used during password sign-in.
	GetProfileByEmail(ctx context.Context, email string) (domain.Profile, error)

	// CreateProfile inserts a new profile (id is provided by the app via ULID).
	CreateProfile(ctx context.Context, p domain.Profile) error

	// IsEmpty reports whether no profiles exist yet (seed-admin bootstrap).
	IsEmpty(ctx context.Context) (bool, error)
}
