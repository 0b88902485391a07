package mailer

import (
	"context"
	"log/slog"
)

// LogMailer writes invitation emails to the log instead of sending them.
// Used in dev when no relay URL is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	m.Logger.Info("invitation email (log only, no relay configured)",
		"to", inv.Email,
		"role", inv.Role.String(),
		"invite_id", inv.InviteID,
		"callback_url", inv.CallbackURL,
	)
	return nil
}
