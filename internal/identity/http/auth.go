package http

import (
	"encoding/json"
	"net/http"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/pkg/httpx"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Profile     profileBody `json:"profile"`
}

type profileBody struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FullName      *string `json:"full_name,omitempty"`
	Role          string  `json:"role"`
	CapacityLevel *string `json:"capacity_level,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
}

func toProfileBody(p domain.Profile) profileBody {
	body := profileBody{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role.String(),
		AvatarURL: p.AvatarURL,
	}
	if p.CapacityLevel != nil {
		level := string(*p.CapacityLevel)
		body.CapacityLevel = &level
	}
	return body
}

// Login handles POST /v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	token, profile, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Profile:     toProfileBody(profile),
	})
}

// Me handles GET /v1/me. A valid session without a profile row gets a default
// operator profile provisioned on the spot.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.Profiles.EnsureProfile(ctx,
		httpx.UserIDFromContext(ctx), httpx.EmailFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfileBody(profile))
}
