package domain

import "time"

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenPair is an issued session: a signed access token plus the raw
// refresh token. ExpiresIn is the access token lifetime in seconds,
// matching the OAuth expires_in wire field.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
