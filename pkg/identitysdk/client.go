// Package identitysdk is a small typed client for the identity service. It
// covers every public endpoint and is what the end-to-end suite drives.
package identitysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/expressmart/identity/pkg/jwtx"
)

// Client talks to the identity service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PasswordGrant exchanges email+password for a token pair.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", email)
	form.Set("password", password)
	return c.token(ctx, form)
}

// RefreshGrant rotates a refresh token.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

func (c *Client) token(ctx context.Context, form url.Values) (TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out TokenResponse
	if err := c.do(req, &out); err != nil {
		return TokenResponse{}, err
	}
	return out, nil
}

// Bootstrap creates the first admin on an empty system.
func (c *Client) Bootstrap(ctx context.Context, req BootstrapRequest) (UserResponse, error) {
	var out UserResponse
	err := c.postJSON(ctx, "/v1/bootstrap", "", req, &out)
	return out, err
}

// CreateInvitation issues an invitation. Requires an admin or director token.
func (c *Client) CreateInvitation(ctx context.Context, accessToken string, req InvitationRequest) (InvitationResponse, error) {
	var out InvitationResponse
	err := c.postJSON(ctx, "/v1/invitations", accessToken, req, &out)
	return out, err
}

// ListInvitations returns the caller's own invitations.
func (c *Client) ListInvitations(ctx context.Context, accessToken string) ([]InvitationResponse, error) {
	var out []InvitationResponse
	err := c.getJSON(ctx, "/v1/invitations", accessToken, &out)
	return out, err
}

// AcceptInvitation redeems an invitation token for a new account.
func (c *Client) AcceptInvitation(ctx context.Context, req AcceptInvitationRequest) (UserResponse, error) {
	var out UserResponse
	err := c.postJSON(ctx, "/v1/invitations/accept", "", req, &out)
	return out, err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context, accessToken string) (UserResponse, error) {
	var out UserResponse
	err := c.getJSON(ctx, "/v1/me", accessToken, &out)
	return out, err
}

// RequestPasswordReset starts the reset workflow for an email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, "/v1/password-resets", "", ResetRequestCreate{Email: email}, nil)
}

// ListPasswordResets returns pending and approved reset requests. Admin only.
func (c *Client) ListPasswordResets(ctx context.Context, accessToken string) ([]ResetRequestResponse, error) {
	var out []ResetRequestResponse
	err := c.getJSON(ctx, "/v1/password-resets", accessToken, &out)
	return out, err
}

// ApprovePasswordReset approves a pending reset request. Admin only.
func (c *Client) ApprovePasswordReset(ctx context.Context, accessToken, requestID string) error {
	return c.postJSON(ctx, "/v1/password-resets/"+requestID+"/approve", accessToken, struct{}{}, nil)
}

// ConfirmPasswordReset consumes an approved reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return c.postJSON(ctx, "/v1/password-resets/confirm", "",
		ConfirmResetRequest{Token: token, NewPassword: newPassword}, nil)
}

// JWKS fetches the public signing keys.
func (c *Client) JWKS(ctx context.Context) (jwtx.JWKS, error) {
	var out jwtx.JWKS
	err := c.getJSON(ctx, "/.well-known/jwks.json", "", &out)
	return out, err
}

// Livez checks liveness.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.getJSON(ctx, "/livez", "", &out)
	return out, err
}

// Readyz checks readiness, including the database.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.getJSON(ctx, "/readyz", "", &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			StatusCode:       resp.StatusCode,
			Code:             apiErr.Error,
			ErrorDescription: apiErr.ErrorDescription,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
