// Package notify delivers workflow emails. Services hand a Sender the kind
// of event plus a data map and never block a request on delivery.
package notify

import "context"

// Kind identifies the email being sent.
type Kind string

const (
	// KindInvitation carries an invitation link to the invited address.
	KindInvitation Kind = "invitation"

	// KindAdminResetRequest tells admins a user asked for a password reset.
	KindAdminResetRequest Kind = "admin_reset_request"

	// KindResetApproved carries the reset link back to the requesting user.
	KindResetApproved Kind = "reset_approved"
)

// Sender delivers a notification. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, kind Kind, recipients []string, data map[string]any) error
}
