package identity_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	identityhttp "github.com/mantenix/identity/internal/identity/http"
	"github.com/mantenix/identity/internal/identity/mailer"
	"github.com/mantenix/identity/internal/identity/ratelimit"
	"github.com/mantenix/identity/internal/identity/service"
	"github.com/mantenix/identity/internal/identity/store/drivers/sqlite"
	"github.com/mantenix/identity/pkg/identitysdk"
	"github.com/mantenix/identity/pkg/jwtx"
	"github.com/mantenix/identity/pkg/slogx"
)

const (
	adminEmail    = "admin@gmao.test"
	adminPassword = "seed-admin-passw0rd"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Invitation
}

func (m *captureMailer) SendInvitation(_ context.Context, inv mailer.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, inv)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type env struct {
	server *httptest.Server
	mailer *captureMailer
}

// newEnv boots the full HTTP stack against an in-memory store and seeds the
// initial admin. inviteLimit controls the invitation creation window.
func newEnv(t *testing.T, inviteLimit int) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slogx.New(slogx.Config{Service: "identity", Env: "dev", Level: "error", Format: "text"})

	keys, err := jwtx.GenerateKeyPair()
	require.NoError(t, err)

	cm := &captureMailer{}
	guard := &service.Guard{Store: st}
	profiles := &service.ProfileService{Store: st}

	handlers := &identityhttp.Handlers{
		Auth: &service.AuthService{
			Store:   st,
			Signer:  &jwtx.Signer{Key: keys.Private, Issuer: "identity-e2e"},
			Limiter: ratelimit.New(100, 15*time.Minute),
		},
		Invitations: &service.InvitationService{
			Store:           st,
			Mailer:          cm,
			Guard:           guard,
			Limiter:         ratelimit.New(inviteLimit, 15*time.Minute),
			CallbackBaseURL: "https://gmao.test",
		},
		Profiles: profiles,
		Guard:    guard,
		Store:    st,
		Verifier: &jwtx.Verifier{Key: keys.Public, Issuer: "identity-e2e"},
	}

	created, err := profiles.SeedAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	server := httptest.NewServer(identityhttp.NewRouter(handlers, logger))
	t.Cleanup(server.Close)

	return &env{server: server, mailer: cm}
}

func (e *env) adminClient(t *testing.T) *identitysdk.Client {
	t.Helper()
	c := identitysdk.New(e.server.URL)
	_, err := c.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	return c
}

func TestInvitationLifecycleE2E(t *testing.T) {
	env := newEnv(t, 100)
	ctx := context.Background()
	admin := env.adminClient(t)

	me, err := admin.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", me.Role)

	id, err := admin.CreateInvitation(ctx, "tech@gmao.test", "technician")
	require.NoError(t, err)
	require.Equal(t, 1, env.mailer.count())

	rows, err := admin.ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "pending", rows[0].CurrentStatus)
	require.Equal(t, adminEmail, rows[0].InvitedByEmail)

	require.NoError(t, admin.ResendInvitation(ctx, id))
	require.Equal(t, 2, env.mailer.count())

	// The invitee accepts and can immediately sign in with the invited role.
	invitee := identitysdk.New(env.server.URL)
	profile, err := invitee.AcceptInvitation(ctx, id, "Jean Dupont", "s3cret-passw0rd")
	require.NoError(t, err)
	require.Equal(t, "technician", profile.Role)

	login, err := invitee.Login(ctx, "tech@gmao.test", "s3cret-passw0rd")
	require.NoError(t, err)
	require.Equal(t, profile.ID, login.Profile.ID)

	rows, err = admin.ListInvitations(ctx)
	require.NoError(t, err)
	require.Equal(t, "accepted", rows[0].CurrentStatus)

	// Accepted invitations are out of reach for resend and revoke.
	var apiErr *identitysdk.APIError
	require.ErrorAs(t, admin.ResendInvitation(ctx, id), &apiErr)
	require.Equal(t, 409, apiErr.StatusCode)
	require.ErrorAs(t, admin.RevokeInvitation(ctx, id), &apiErr)
	require.Equal(t, 404, apiErr.StatusCode)
}

func TestInvitationRevokeE2E(t *testing.T) {
	env := newEnv(t, 100)
	ctx := context.Background()
	admin := env.adminClient(t)

	id, err := admin.CreateInvitation(ctx, "op@gmao.test", "operator")
	require.NoError(t, err)
	require.NoError(t, admin.RevokeInvitation(ctx, id))

	rows, err := admin.ListInvitations(ctx)
	require.NoError(t, err)
	require.Equal(t, "revoked", rows[0].CurrentStatus)

	// A revoked invitation cannot be accepted.
	invitee := identitysdk.New(env.server.URL)
	_, err = invitee.AcceptInvitation(ctx, id, "Op", "s3cret-passw0rd")
	var apiErr *identitysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 409, apiErr.StatusCode)
}

func TestInvitationAuthzE2E(t *testing.T) {
	env := newEnv(t, 100)
	ctx := context.Background()

	// Anonymous callers are rejected at the middleware.
	anon := identitysdk.New(env.server.URL)
	_, err := anon.ListInvitations(ctx)
	var apiErr *identitysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)

	// A non-admin session is rejected too.
	admin := env.adminClient(t)
	id, err := admin.CreateInvitation(ctx, "op@gmao.test", "operator")
	require.NoError(t, err)

	op := identitysdk.New(env.server.URL)
	_, err = op.AcceptInvitation(ctx, id, "Op", "s3cret-passw0rd")
	require.NoError(t, err)
	_, err = op.Login(ctx, "op@gmao.test", "s3cret-passw0rd")
	require.NoError(t, err)

	_, err = op.CreateInvitation(ctx, "x@gmao.test", "operator")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.StatusCode)
}

func TestInvitationRateLimitE2E(t *testing.T) {
	env := newEnv(t, 3)
	ctx := context.Background()
	admin := env.adminClient(t)

	for _, email := range []string{"a@gmao.test", "b@gmao.test", "c@gmao.test"} {
		_, err := admin.CreateInvitation(ctx, email, "operator")
		require.NoError(t, err)
	}

	_, err := admin.CreateInvitation(ctx, "d@gmao.test", "operator")
	var apiErr *identitysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 429, apiErr.StatusCode)
	require.Greater(t, apiErr.RetryAfter, time.Duration(0))

	// Resend is not bound by the creation window.
	rows, err := admin.ListInvitations(ctx)
	require.NoError(t, err)
	require.NoError(t, admin.ResendInvitation(ctx, rows[0].ID))
}

func TestHealthE2E(t *testing.T) {
	env := newEnv(t, 100)

	resp, err := env.server.Client().Get(env.server.URL + "/livez")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	resp2, err := env.server.Client().Get(env.server.URL + "/readyz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, 200, resp2.StatusCode)
}

func TestLoginFailuresE2E(t *testing.T) {
	env := newEnv(t, 100)
	ctx := context.Background()

	c := identitysdk.New(env.server.URL)
	_, err := c.Login(ctx, adminEmail, "wrong-password")
	var apiErr *identitysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
	require.Equal(t, "invalid_credentials", apiErr.Code)

	// Unknown accounts look identical to wrong passwords.
	_, err = c.Login(ctx, "ghost@gmao.test", "wrong-password")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
}
