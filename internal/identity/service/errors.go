package service

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin role required")

	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidPassword    = errors.New("password does not meet requirements")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationNotResendable = errors.New("invitation can no longer be resent")
	ErrInvitationNotPending    = errors.New("invitation is not pending")
	ErrEmailAlreadyRegistered  = errors.New("email is already registered")

	ErrInvitationCreateFailed = errors.New("failed to create invitation")
	ErrInvitationResendFailed = errors.New("failed to resend invitation")
	ErrInvitationRevokeFailed = errors.New("failed to revoke invitation")
	ErrInvitationEmailFailed  = errors.New("failed to send invitation email")
)

// RateLimitError reports a denied admission with the wait until the window
// resets. Always recoverable by waiting.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Minutes is the rounded-up wait used in user-facing messaging.
func (e *RateLimitError) Minutes() int {
	return int(math.Ceil(e.RetryAfter.Minutes()))
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached, retry in %d minute(s)", e.Minutes())
}
