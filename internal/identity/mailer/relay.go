package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// RelayMailer sends invitation emails through the mail relay's HTTP API.
type RelayMailer struct {
	client   *http.Client
	relayURL string
}

type relayRequest struct {
	Type        string `json:"type"`
	To          string `json:"to"`
	Role        string `json:"role"`
	InviteID    string `json:"invite_id"`
	CallbackURL string `json:"callback_url"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewRelayMailer builds a mailer posting to relayURL. A zero timeout falls
// back to 10 seconds.
func NewRelayMailer(relayURL string, timeout time.Duration) (*RelayMailer, error) {
	if relayURL == "" {
		return nil, fmt.Errorf("mailer: relay URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &RelayMailer{
		client:   &http.Client{Timeout: timeout},
		relayURL: relayURL,
	}, nil
}

func (m *RelayMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	body, err := json.Marshal(relayRequest{
		Type:        "user_invitation",
		To:          inv.Email,
		Role:        inv.Role.String(),
		InviteID:    inv.InviteID,
		CallbackURL: inv.CallbackURL,
	})
	if err != nil {
		return fmt.Errorf("mailer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.relayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mailer: read response: %w", err)
	}

	var envelope relayResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("mailer: relay returned status %d: %s", resp.StatusCode, respBody)
		}
		return fmt.Errorf("mailer: relay error: %s", envelope.Error)
	}

	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("mailer: parse response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("mailer: relay rejected message: %s", envelope.Error)
	}
	return nil
}
