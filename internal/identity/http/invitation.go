package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/pkg/httpx"
)

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type invitationIDResponse struct {
	ID string `json:"id"`
}

type invitationRow struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	CurrentStatus  string     `json:"current_status"`
	InvitedByEmail string     `json:"invited_by_email"`
	InvitedByName  string     `json:"invited_by_name,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type listInvitationsResponse struct {
	Invitations []invitationRow `json:"invitations"`
}

type acceptInvitationRequest struct {
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// CreateInvitation handles POST /v1/invitations.
func (h *Handlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	id, err := h.Invitations.Create(r.Context(), req.Email, domain.Role(req.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, invitationIDResponse{ID: id})
}

// ListInvitations handles GET /v1/invitations.
func (h *Handlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	projections, err := h.Invitations.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rows := make([]invitationRow, 0, len(projections))
	for _, p := range projections {
		rows = append(rows, invitationRow{
			ID:             p.ID,
			Email:          p.Email,
			Role:           p.Role.String(),
			Status:         string(p.Status),
			CurrentStatus:  string(p.CurrentStatus),
			InvitedByEmail: p.InvitedByEmail,
			InvitedByName:  p.InvitedByName,
			ExpiresAt:      p.ExpiresAt,
			AcceptedAt:     p.AcceptedAt,
			CreatedAt:      p.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, listInvitationsResponse{Invitations: rows})
}

// ResendInvitation handles POST /v1/invitations/{id}/resend.
func (h *Handlers) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := h.Invitations.Resend(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, invitationIDResponse{ID: id})
}

// RevokeInvitation handles DELETE /v1/invitations/{id}.
func (h *Handlers) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := h.Invitations.Revoke(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, invitationIDResponse{ID: id})
}

// AcceptInvitation handles POST /v1/invitations/{id}/accept. Public: the
// recipient is not signed in yet.
func (h *Handlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	profile, err := h.Invitations.Accept(r.Context(), r.PathValue("id"), req.FullName, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toProfileBody(profile))
}
