package identitysdk

import "time"

// Profile is a registered user as returned by the API.
type Profile struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FullName      *string `json:"full_name,omitempty"`
	Role          string  `json:"role"`
	CapacityLevel *string `json:"capacity_level,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
}

// LoginResponse is the payload returned by a successful sign-in.
type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	Profile     Profile `json:"profile"`
}

// Invitation is a row of the invitation management listing.
type Invitation struct {
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

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInvitationRequest struct {
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type invitationIDResponse struct {
	ID string `json:"id"`
}

type listInvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}
