package domain

import "time"

type User struct {
	ID           string
	Email        string // unique, case-sensitive key
	FirstName    string
	LastName     string
	PasswordHash string // argon2id encoded
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is an authenticated identity attempting an operation. Handlers
// build it from verified token claims; the zero value means anonymous.
type Actor struct {
	UserID string
	Role   Role
}
