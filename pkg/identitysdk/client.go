// Package identitysdk is a thin Go client for the identity service's HTTP
// API. The service's own e2e suite runs through it.
package identitysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is the error envelope returned by the service. RetryAfter is set
// on 429 responses.
type APIError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("identitysdk: %s (%d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("identitysdk: %s (%d)", e.Code, e.StatusCode)
}

// Client talks to one identity service instance. Token, when set, is sent as
// a bearer credential on every request.
type Client struct {
	BaseURL string
	Token   string

	HTTPClient *http.Client
}

// New builds a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Login signs in and remembers the session token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return LoginResponse{}, err
	}
	c.Token = out.AccessToken
	return out, nil
}

// Me returns the authenticated caller's profile.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, &out)
	return out, err
}

// CreateInvitation invites an email with a role. Admin only.
func (c *Client) CreateInvitation(ctx context.Context, email, role string) (string, error) {
	var out invitationIDResponse
	err := c.do(ctx, http.MethodPost, "/v1/invitations", createInvitationRequest{Email: email, Role: role}, &out)
	return out.ID, err
}

// ListInvitations returns the management listing, most recent first.
func (c *Client) ListInvitations(ctx context.Context) ([]Invitation, error) {
	var out listInvitationsResponse
	err := c.do(ctx, http.MethodGet, "/v1/invitations", nil, &out)
	return out.Invitations, err
}

// ResendInvitation re-dispatches the invitation email with a fresh expiry.
func (c *Client) ResendInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/invitations/"+id+"/resend", nil, nil)
}

// RevokeInvitation cancels a pending or expired invitation.
func (c *Client) RevokeInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/invitations/"+id, nil, nil)
}

// AcceptInvitation finishes the invitation flow and returns the new profile.
func (c *Client) AcceptInvitation(ctx context.Context, id, fullName, password string) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodPost, "/v1/invitations/"+id+"/accept",
		acceptInvitationRequest{FullName: fullName, Password: password}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("identitysdk: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("identitysdk: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identitysdk: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unknown"}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("identitysdk: decode response: %w", err)
		}
	}
	return nil
}
