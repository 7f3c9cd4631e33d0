package store

import (
	"context"
	"errors"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Invitations() Invitations
	ResetRequests() ResetRequests
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., invitation
	// redemption). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during password grant and reset lookup.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsersByRole returns all users holding the given role, oldest first.
	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Invitations interface {
	// CreateInvitation writes a new invitation (token_hash is the SHA-256
	// fingerprint of the opaque invitation token).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByTokenHash returns the invitation by hash regardless of
	// accepted or expiry state. Callers decide which failure to report.
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// ListInvitationsByInviter returns invitations issued by a user, newest first.
	ListInvitationsByInviter(ctx context.Context, inviterID string) ([]domain.Invitation, error)

	// MarkInvitationAccepted sets accepted=1 only if the invitation is still
	// unaccepted. Returns ErrNotFound when another redemption won the race.
	MarkInvitationAccepted(ctx context.Context, invitationID string, acceptedAt time.Time) error
}

type ResetRequests interface {
	// CreateResetRequest writes a new password reset request.
	CreateResetRequest(ctx context.Context, req domain.PasswordResetRequest) error

	// GetResetRequestByID returns a reset request by id.
	GetResetRequestByID(ctx context.Context, id string) (domain.PasswordResetRequest, error)

	// GetApprovedResetRequestByToken returns the request only when approved.
	// Unapproved tokens are indistinguishable from unknown ones.
	GetApprovedResetRequestByToken(ctx context.Context, token string) (domain.PasswordResetRequest, error)

	// ApproveResetRequest sets approved=1 only if the request is still
	// unapproved. Returns ErrNotFound when the id is unknown or a concurrent
	// approval won.
	ApproveResetRequest(ctx context.Context, id string) error

	// DeleteResetRequest removes the request by id. Returns ErrNotFound when
	// it was already consumed, which makes the delete usable as a single-use
	// guard inside a transaction.
	DeleteResetRequest(ctx context.Context, id string) error

	// ListResetRequests returns all requests joined with the owning user's
	// email, newest first.
	ListResetRequests(ctx context.Context) ([]domain.ResetRequestWithUser, error)

	// DeleteExpiredResetRequests is housekeeping.
	DeleteExpiredResetRequests(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 only if the token is still live.
	// Returns ErrNotFound when the hash is unknown or already revoked, so a
	// rotation race has exactly one winner.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g., password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
