package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/mailer"
	"github.com/mantenix/identity/internal/identity/ratelimit"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/internal/identity/store/drivers/sqlite"
	"github.com/mantenix/identity/pkg/httpx"
	"github.com/mantenix/identity/pkg/idx"
)

type fakeMailer struct {
	sent []mailer.Invitation
	err  error
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv mailer.Invitation) error {
	m.sent = append(m.sent, inv)
	return m.err
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type invitationEnv struct {
	store   *sqlite.Store
	mailer  *fakeMailer
	clock   *testClock
	limiter *ratelimit.Limiter
	svc     *InvitationService

	adminID    string
	operatorID string
}

func newInvitationEnv(t *testing.T) *invitationEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	admin := domain.Profile{
		ID:           idx.New().String(),
		Email:        "admin@gmao.test",
		Role:         domain.RoleAdmin,
		PasswordHash: "x",
	}
	require.NoError(t, st.Profiles().CreateProfile(context.Background(), admin))

	operator := domain.Profile{
		ID:           idx.New().String(),
		Email:        "operator@gmao.test",
		Role:         domain.RoleOperator,
		PasswordHash: "x",
	}
	require.NoError(t, st.Profiles().CreateProfile(context.Background(), operator))

	fm := &fakeMailer{}
	limiter := ratelimit.New(3, 15*time.Minute, ratelimit.WithClock(clock.Now))

	svc := &InvitationService{
		Store:           st,
		Mailer:          fm,
		Guard:           &Guard{Store: st},
		Limiter:         limiter,
		CallbackBaseURL: "https://gmao.test",
		Now:             clock.Now,
	}

	return &invitationEnv{
		store:      st,
		mailer:     fm,
		clock:      clock,
		limiter:    limiter,
		svc:        svc,
		adminID:    admin.ID,
		operatorID: operator.ID,
	}
}

func (e *invitationEnv) asAdmin() context.Context {
	return httpx.ContextWithUser(context.Background(), e.adminID, "admin@gmao.test")
}

func (e *invitationEnv) asOperator() context.Context {
	return httpx.ContextWithUser(context.Background(), e.operatorID, "operator@gmao.test")
}

func TestInvitationCreate(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Len(t, env.mailer.sent, 1)
	require.Equal(t, "tech@gmao.test", env.mailer.sent[0].Email)
	require.Equal(t, id, env.mailer.sent[0].InviteID)
	require.Contains(t, env.mailer.sent[0].CallbackURL, "invitation="+id)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, id, rows[0].ID)
	require.Equal(t, domain.StatusPending, rows[0].Status)
	require.Equal(t, domain.StatusPending, rows[0].CurrentStatus)
	require.Equal(t, "admin@gmao.test", rows[0].InvitedByEmail)
	require.Equal(t, env.clock.now.Add(domain.DefaultInvitationTTL), rows[0].ExpiresAt)
}

func TestInvitationCreateGuard(t *testing.T) {
	env := newInvitationEnv(t)

	_, err := env.svc.Create(context.Background(), "tech@gmao.test", domain.RoleTechnician)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.svc.Create(env.asOperator(), "tech@gmao.test", domain.RoleTechnician)
	require.ErrorIs(t, err, ErrForbidden)

	// Guard failures happen before any side effect: no mail, no row, no
	// limiter consumption.
	require.Empty(t, env.mailer.sent)
	require.Zero(t, env.limiter.Len())

	rows, err := env.svc.List(env.asAdmin())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestInvitationCreateValidation(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	_, err := env.svc.Create(ctx, "not-an-email", domain.RoleTechnician)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = env.svc.Create(ctx, "tech@gmao.test", domain.Role("root"))
	require.ErrorIs(t, err, ErrInvalidRole)

	// Validation failures do not consume a limiter slot.
	require.Zero(t, env.limiter.Len())
}

func TestInvitationCreateRateLimited(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	emails := []string{"a@gmao.test", "b@gmao.test", "c@gmao.test"}
	for _, email := range emails {
		_, err := env.svc.Create(ctx, email, domain.RoleOperator)
		require.NoError(t, err)
	}

	_, err := env.svc.Create(ctx, "d@gmao.test", domain.RoleOperator)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, 15, rle.Minutes())

	// The denied attempt left no trace.
	rows, lerr := env.svc.List(ctx)
	require.NoError(t, lerr)
	require.Len(t, rows, 3)

	// A fresh window admits again.
	env.clock.Advance(15*time.Minute + time.Second)
	_, err = env.svc.Create(ctx, "d@gmao.test", domain.RoleOperator)
	require.NoError(t, err)
}

func TestInvitationCreateDuplicatePending(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	_, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.ErrorIs(t, err, ErrInvitationCreateFailed)
}

func TestInvitationCreateMailFailureCompensates(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	env.mailer.err = errors.New("relay unavailable")
	_, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.ErrorIs(t, err, ErrInvitationEmailFailed)

	// Exactly one send attempt, and the orphaned record was revoked so the
	// email can be invited again immediately.
	require.Len(t, env.mailer.sent, 1)

	rows, lerr := env.svc.List(ctx)
	require.NoError(t, lerr)
	require.Len(t, rows, 1)
	require.Equal(t, domain.StatusRevoked, rows[0].Status)

	env.mailer.err = nil
	_, err = env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)
}

func TestInvitationResend(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	env.clock.Advance(2 * 24 * time.Hour)

	resendID, err := env.svc.Resend(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, resendID)
	require.Len(t, env.mailer.sent, 2)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, env.clock.now.Add(domain.DefaultInvitationTTL), rows[0].ExpiresAt)
	require.Equal(t, domain.StatusPending, rows[0].CurrentStatus)
}

func TestInvitationResendExpired(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	// Past the expiry the listing derives expired without a write, and a
	// resend brings the invitation back to pending.
	env.clock.Advance(8 * 24 * time.Hour)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, rows[0].Status)
	require.Equal(t, domain.StatusExpired, rows[0].CurrentStatus)

	_, err = env.svc.Resend(ctx, id)
	require.NoError(t, err)

	rows, err = env.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, rows[0].CurrentStatus)
}

func TestInvitationResendMailFailureDoesNotRevoke(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	env.mailer.err = errors.New("relay unavailable")
	_, err = env.svc.Resend(ctx, id)
	require.ErrorIs(t, err, ErrInvitationEmailFailed)

	// Unlike create, the invitation survives: the recipient may still hold
	// the original link.
	rows, lerr := env.svc.List(ctx)
	require.NoError(t, lerr)
	require.Equal(t, domain.StatusPending, rows[0].Status)
}

func TestInvitationResendTerminalStates(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	_, err := env.svc.Resend(ctx, idx.New().String())
	require.ErrorIs(t, err, ErrInvitationNotFound)

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)
	_, err = env.svc.Revoke(ctx, id)
	require.NoError(t, err)

	_, err = env.svc.Resend(ctx, id)
	require.ErrorIs(t, err, ErrInvitationNotResendable)
}

func TestInvitationRevoke(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	revokedID, err := env.svc.Revoke(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, revokedID)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRevoked, rows[0].Status)
	require.Equal(t, domain.StatusRevoked, rows[0].CurrentStatus)

	// Revoking twice, or revoking an unknown id, reports not found.
	_, err = env.svc.Revoke(ctx, id)
	require.ErrorIs(t, err, ErrInvitationNotFound)
	_, err = env.svc.Revoke(ctx, idx.New().String())
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInvitationListOrdering(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	first, err := env.svc.Create(ctx, "a@gmao.test", domain.RoleOperator)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	second, err := env.svc.Create(ctx, "b@gmao.test", domain.RoleSupervisor)
	require.NoError(t, err)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, second, rows[0].ID)
	require.Equal(t, first, rows[1].ID)
}

func TestInvitationAccept(t *testing.T) {
	env := newInvitationEnv(t)
	ctx := env.asAdmin()

	id, err := env.svc.Create(ctx, "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	profile, err := env.svc.Accept(context.Background(), id, "Jean Dupont", "s3cret-passw0rd")
	require.NoError(t, err)
	require.Equal(t, "tech@gmao.test", profile.Email)
	require.Equal(t, domain.RoleTechnician, profile.Role)
	require.NotNil(t, profile.FullName)
	require.Equal(t, "Jean Dupont", *profile.FullName)

	stored, err := env.store.Profiles().GetProfileByEmail(context.Background(), "tech@gmao.test")
	require.NoError(t, err)
	require.Equal(t, profile.ID, stored.ID)

	rows, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, rows[0].Status)
	require.NotNil(t, rows[0].AcceptedAt)

	// Accepted invitations cannot be replayed, resent, or revoked.
	_, err = env.svc.Accept(context.Background(), id, "Jean Dupont", "s3cret-passw0rd")
	require.ErrorIs(t, err, ErrInvitationNotPending)
	_, err = env.svc.Resend(ctx, id)
	require.ErrorIs(t, err, ErrInvitationNotResendable)
	_, err = env.svc.Revoke(ctx, id)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInvitationAcceptExpired(t *testing.T) {
	env := newInvitationEnv(t)

	id, err := env.svc.Create(env.asAdmin(), "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	env.clock.Advance(8 * 24 * time.Hour)

	_, err = env.svc.Accept(context.Background(), id, "Jean Dupont", "s3cret-passw0rd")
	require.ErrorIs(t, err, ErrInvitationNotPending)

	// The failed acceptance left no profile behind.
	_, err = env.store.Profiles().GetProfileByEmail(context.Background(), "tech@gmao.test")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvitationAcceptWeakPassword(t *testing.T) {
	env := newInvitationEnv(t)

	id, err := env.svc.Create(env.asAdmin(), "tech@gmao.test", domain.RoleTechnician)
	require.NoError(t, err)

	_, err = env.svc.Accept(context.Background(), id, "Jean Dupont", "short")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestInvitationPerAdminKeyScope(t *testing.T) {
	env := newInvitationEnv(t)
	env.svc.KeyScope = KeyScopePerAdmin

	// Promote the operator so we have a second admin.
	second := domain.Profile{
		ID:           idx.New().String(),
		Email:        "admin2@gmao.test",
		Role:         domain.RoleAdmin,
		PasswordHash: "x",
	}
	require.NoError(t, env.store.Profiles().CreateProfile(context.Background(), second))
	secondCtx := httpx.ContextWithUser(context.Background(), second.ID, second.Email)

	for _, email := range []string{"a@gmao.test", "b@gmao.test", "c@gmao.test"} {
		_, err := env.svc.Create(env.asAdmin(), email, domain.RoleOperator)
		require.NoError(t, err)
	}

	_, err := env.svc.Create(env.asAdmin(), "d@gmao.test", domain.RoleOperator)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)

	// The second admin has an independent window.
	_, err = env.svc.Create(secondCtx, "d@gmao.test", domain.RoleOperator)
	require.NoError(t, err)
}
