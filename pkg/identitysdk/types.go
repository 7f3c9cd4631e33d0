package identitysdk

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ErrorResponse is the uniform error payload returned by every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenResponse is returned by the token endpoint for both grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// InvitationRequest asks for a new invitation to be issued.
type InvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r InvitationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.Required),
	)
}

// InvitationResponse describes an issued invitation. The token only appears
// in the issuance response, never in listings.
type InvitationResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	InvitedBy  string `json:"invited_by,omitempty"`
	ExpiresAt  string `json:"expires_at"`
	Accepted   bool   `json:"accepted"`
	AcceptedAt string `json:"accepted_at,omitempty"`
	CreatedAt  string `json:"created_at"`
	Token      string `json:"token,omitempty"`
}

// AcceptInvitationRequest redeems an invitation token for an account.
type AcceptInvitationRequest struct {
	Token     string `json:"token"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r AcceptInvitationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// ResetRequestCreate starts the password reset workflow.
type ResetRequestCreate struct {
	Email string `json:"email"`
}

func (r ResetRequestCreate) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetRequestResponse is the admin's view of a pending reset. The token
// stays server side; admins approve by id.
type ResetRequestResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Approved  bool   `json:"approved"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// ConfirmResetRequest consumes an approved reset token.
type ConfirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r ConfirmResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 0)),
	)
}

// BootstrapRequest creates the first admin on an empty system.
type BootstrapRequest struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r BootstrapRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

// HealthChecks itemises readiness probes.
type HealthChecks struct {
	Database string `json:"database"`
	Keys     string `json:"keys"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Uptime  string        `json:"uptime,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
