package domain

import "time"

// Profile is a registered user of the GMAO application.
type Profile struct {
	ID            string
	Email         string
	FullName      *string
	Role          Role
	CapacityLevel *CapacityLevel
	AvatarURL     *string
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
