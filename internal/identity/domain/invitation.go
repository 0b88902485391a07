package domain

import "time"

// Status is the stored invitation status. Exactly one holds at any time; it
// only changes through explicit operations (accept, revoke, resend).
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// StatusActive is not produced by this service's projection, but some upstream
// views emit it as a synonym of pending. Action-availability checks accept it.
const StatusActive = "active"

// DefaultInvitationTTL is how long an invitation stays acceptable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Invitation is an offer for a prospective user to register with a
// pre-assigned role, bounded by an expiry.
type Invitation struct {
	ID         string
	Email      string
	Role       Role
	Status     Status
	InvitedBy  string // profile id of the admin who sent it
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CurrentStatusAt derives the read-time status: a pending invitation past its
// expiry reads as expired without any write.
func (i Invitation) CurrentStatusAt(now time.Time) Status {
	if i.Status == StatusPending && now.After(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

// Projection is the listing row served to the management UI: the stored fields
// plus the derived current status and inviter identity.
type Projection struct {
	ID             string
	Email          string
	Role           Role
	Status         Status
	CurrentStatus  Status
	InvitedByEmail string
	InvitedByName  string
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	CreatedAt      time.Time
}

// Actionable reports whether resend/revoke should be offered for an
// invitation, given its stored status and the (possibly upstream-provided)
// current status. Pending and expired invitations remain actionable; the
// "active" synonym keeps actions available too.
func Actionable(stored Status, current Status) bool {
	if stored == StatusPending || stored == StatusExpired {
		return true
	}
	return string(current) == StatusActive
}
