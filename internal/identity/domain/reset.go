package domain

import "time"

// PasswordResetRequest is a user-initiated reset that an admin must
// approve before the token becomes redeemable. Successful confirmation
// deletes the record; consumption is destructive rather than flagged.
//
// The token is stored in the clear, unlike invitation tokens: the
// approval step happens after issuance and must be able to materialize
// the reset link for the user's email.
type PasswordResetRequest struct {
	ID        string
	Token     string
	UserID    string
	Approved  bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r PasswordResetRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ResetRequestWithUser pairs a reset request with the target user's
// email for admin listings.
type ResetRequestWithUser struct {
	PasswordResetRequest
	UserEmail string
}
