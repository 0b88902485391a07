package http

import (
	"log/slog"
	"net/http"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/pkg/httpx"
	"github.com/mantenix/identity/pkg/slogx"
)

// NewRouter wires the endpoints with their middleware chains. Admin routes
// re-check the caller's role in the service layer too; the middleware is the
// fast path, the service guard is the authority.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	authn := httpx.AuthnMiddleware(h.Verifier)
	admin := httpx.RequireRole(h.Guard, domain.RoleAdmin.String())

	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	moderate := httpx.RateLimitByIP(httpx.ModerateLimit)

	mux.Handle("POST /v1/auth/login", httpx.Chain(
		http.HandlerFunc(h.Login), strict))

	mux.Handle("GET /v1/me", httpx.Chain(
		http.HandlerFunc(h.Me), authn))

	mux.Handle("POST /v1/invitations", httpx.Chain(
		http.HandlerFunc(h.CreateInvitation), authn, admin, moderate))
	mux.Handle("GET /v1/invitations", httpx.Chain(
		http.HandlerFunc(h.ListInvitations), authn, admin))
	mux.Handle("POST /v1/invitations/{id}/resend", httpx.Chain(
		http.HandlerFunc(h.ResendInvitation), authn, admin, moderate))
	mux.Handle("DELETE /v1/invitations/{id}", httpx.Chain(
		http.HandlerFunc(h.RevokeInvitation), authn, admin, moderate))

	// Public: the invitee has no session yet.
	mux.Handle("POST /v1/invitations/{id}/accept", httpx.Chain(
		http.HandlerFunc(h.AcceptInvitation), strict))

	mux.HandleFunc("GET /livez", h.Livez)
	mux.HandleFunc("GET /readyz", h.Readyz)

	return httpx.Chain(mux, slogx.HTTPMiddleware(logger))
}
