// Package http exposes the identity service over JSON/HTTP.
package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mantenix/identity/internal/identity/service"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/httpx"
	"github.com/mantenix/identity/pkg/jwtx"
	"github.com/mantenix/identity/pkg/slogx"
)

// Handlers bundles the HTTP endpoints with their service dependencies.
type Handlers struct {
	Auth        *service.AuthService
	Invitations *service.InvitationService
	Profiles    *service.ProfileService
	Guard       *service.Guard
	Store       store.Store
	Verifier    *jwtx.Verifier
}

// writeServiceError translates service sentinels into the standard error
// envelope. Anything unmapped is a 500 with the details kept in the log, not
// the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *service.RateLimitError
	if errors.As(err, &rle) {
		retryAfter := max(int(rle.RetryAfter.Seconds()), 1)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		httpx.WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", err.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "admin role required")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidPassword):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrInvitationNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "invitation not found")
	case errors.Is(err, service.ErrInvitationNotResendable),
		errors.Is(err, service.ErrInvitationNotPending),
		errors.Is(err, service.ErrEmailAlreadyRegistered):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrInvitationEmailFailed):
		httpx.WriteError(w, http.StatusBadGateway, "email_dispatch_failed", err.Error())
	case errors.Is(err, service.ErrInvitationCreateFailed),
		errors.Is(err, service.ErrInvitationResendFailed),
		errors.Is(err, service.ErrInvitationRevokeFailed):
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
