// Package mailer dispatches invitation emails through the external mail
// relay. The relay is an opaque HTTP collaborator; only its JSON envelope is
// known here.
package mailer

import (
	"context"

	"github.com/mantenix/identity/internal/identity/domain"
)

// Invitation carries everything the relay needs to render and send an
// invitation email. CallbackURL is the acceptance link embedding the
// invitation id.
type Invitation struct {
	Email       string
	Role        domain.Role
	InviteID    string
	CallbackURL string
}

// Mailer sends invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}
