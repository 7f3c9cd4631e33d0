package domain

import "time"

// Invitation is a single-use, time-bounded offer to create an account
// with a pre-assigned role. Accepted invitations are kept as an audit
// trail and are never deleted.
type Invitation struct {
	ID         string
	TokenHash  string // SHA-256 fingerprint of the opaque invite token
	Email      string
	Role       Role
	InvitedBy  string // user id of the issuer; empty if the issuer was deleted
	ExpiresAt  time.Time
	Accepted   bool
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the invitation is past its expiry. Lookups do
// not filter on this; callers decide when staleness matters.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
