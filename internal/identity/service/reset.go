package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/notify"
	"github.com/expressmart/identity/internal/identity/policy"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/pkg/cryptox"
	"github.com/expressmart/identity/pkg/idx"
	"github.com/expressmart/identity/pkg/slogx"
)

var (
	ErrUserNotFound        = errors.New("no account for that email")
	ErrResetNotFound       = errors.New("reset request not found")
	ErrResetExpired        = errors.New("reset request has expired")
	ErrInvalidResetRequest = errors.New("invalid reset request")
	ErrWeakPassword        = errors.New("password does not meet requirements")
)

const minResetPasswordLength = 8

// ResetPolicy tunes edge behaviour of the reset workflow. The zero value
// matches the dashboard's historical behaviour.
type ResetPolicy struct {
	// MaskUnknownEmail makes Request pretend to succeed for unknown
	// addresses instead of reporting them, closing the account probe.
	MaskUnknownEmail bool

	// RejectExpiredApproval makes Approve refuse requests that are already
	// past their expiry instead of approving a link nobody can use.
	RejectExpiredApproval bool
}

type ResetService struct {
	Store    store.Store
	Notifier notify.Sender

	// TTL is how long a reset token stays confirmable.
	TTL time.Duration

	// BaseURL is the dashboard origin used to build reset links.
	BaseURL string

	Policy ResetPolicy
}

// Request records that a user wants their password reset and alerts every
// admin. No reset link reaches the user until an admin approves.
func (s *ResetService) Request(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	if email == "" {
		return ErrInvalidResetRequest
	}

	// 1. Resolve the account.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("reset requested for unknown email")
			if s.Policy.MaskUnknownEmail {
				return nil
			}
			return ErrUserNotFound
		}
		log.Error("failed to fetch user for reset", slog.Any("error", err))
		return err
	}

	// 2. Mint the token. It is stored raw so the approval step can still
	// materialise the reset link days later.
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		log.Error("failed to generate reset token", slog.Any("error", err))
		return err
	}

	now := time.Now().UTC()
	req := domain.PasswordResetRequest{
		ID:        idx.New().String(),
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.ResetRequests().CreateResetRequest(ctx, req); err != nil {
		log.Error("failed to create reset request",
			slog.String("reset_id", req.ID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("password reset requested",
		slog.String("reset_id", req.ID),
		slog.String("user_id", user.ID),
	)

	// 3. Fan the alert out to every admin after commit.
	admins, err := s.Store.Users().ListUsersByRole(ctx, domain.RoleAdmin)
	if err != nil {
		log.Error("failed to list admins for reset alert", slog.Any("error", err))
		return nil // the request itself succeeded
	}

	recipients := make([]string, 0, len(admins))
	for _, a := range admins {
		recipients = append(recipients, a.Email)
	}

	s.sendAfterCommit(notify.KindAdminResetRequest, recipients, map[string]any{
		"UserEmail": user.Email,
		"ExpiresAt": req.ExpiresAt.Format(time.RFC3339),
	})

	return nil
}

// Approve marks a pending reset request as approved and mails the reset
// link to the requesting user. Admin only.
func (s *ResetService) Approve(ctx context.Context, actor domain.Actor, requestID string) error {
	log := slogx.FromContext(ctx)

	if !policy.Allowed(actor.Role, policy.ActionApproveReset) {
		log.Warn("reset approval denied",
			slog.String("actor_id", actor.UserID),
			slog.String("actor_role", actor.Role.String()),
		)
		return ErrNotAllowed
	}

	// 1. The request must exist.
	req, err := s.Store.ResetRequests().GetResetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetNotFound
		}
		log.Error("failed to fetch reset request", slog.Any("error", err))
		return err
	}

	// 2. Optionally refuse approvals for links nobody could use anyway.
	if s.Policy.RejectExpiredApproval && req.Expired(time.Now().UTC()) {
		return ErrResetExpired
	}

	// 3. Conditional write: only one approval can win.
	if err := s.Store.ResetRequests().ApproveResetRequest(ctx, requestID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetNotFound
		}
		log.Error("failed to approve reset request", slog.Any("error", err))
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, req.UserID)
	if err != nil {
		log.Error("failed to fetch user after reset approval", slog.Any("error", err))
		return nil // approval committed; the email is best effort
	}

	log.Info("password reset approved",
		slog.String("reset_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("approved_by", actor.UserID),
	)

	s.sendAfterCommit(notify.KindResetApproved, []string{user.Email}, map[string]any{
		"Link":      s.BaseURL + "/reset-password?token=" + req.Token,
		"ExpiresAt": req.ExpiresAt.Format(time.RFC3339),
	})

	return nil
}

// Confirm consumes an approved reset token, sets the new password and
// revokes every session the user holds. Unapproved tokens look exactly like
// unknown ones.
func (s *ResetService) Confirm(ctx context.Context, token string, newPassword string) error {
	log := slogx.FromContext(ctx)

	if token == "" {
		return ErrInvalidResetRequest
	}
	if len(newPassword) < minResetPasswordLength {
		return ErrWeakPassword
	}

	// 1. Approved requests only.
	req, err := s.Store.ResetRequests().GetApprovedResetRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("reset confirmation attempted with unknown or unapproved token")
			return ErrResetNotFound
		}
		log.Error("failed to fetch reset request by token", slog.Any("error", err))
		return err
	}

	// 2. Expired requests stay in place for the audit trail; housekeeping
	// removes them later.
	if req.Expired(time.Now().UTC()) {
		log.Warn("reset confirmation attempted after expiry",
			slog.String("reset_id", req.ID),
		)
		return ErrResetExpired
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		log.Error("failed to hash new password", slog.Any("error", err))
		return err
	}

	// 3. Consume the request, swap the password and drop all sessions in
	// one transaction. The delete is the single-use arbiter: whichever
	// confirmation deletes the row wins.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ResetRequests().DeleteResetRequest(ctx, req.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetNotFound
			}
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, req.UserID, passwordHash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, req.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrResetNotFound) {
			log.Warn("reset confirmation lost the single-use race",
				slog.String("reset_id", req.ID),
			)
		} else {
			log.Error("failed to confirm password reset",
				slog.String("reset_id", req.ID),
				slog.Any("error", err),
			)
		}
		return err
	}

	log.Info("password reset confirmed",
		slog.String("reset_id", req.ID),
		slog.String("user_id", req.UserID),
	)

	return nil
}

// List returns every pending and approved reset request with the owning
// user's email. Admin only.
func (s *ResetService) List(ctx context.Context, actor domain.Actor) ([]domain.ResetRequestWithUser, error) {
	if !policy.Allowed(actor.Role, policy.ActionListResetRequests) {
		return nil, ErrNotAllowed
	}
	return s.Store.ResetRequests().ListResetRequests(ctx)
}

func (s *ResetService) sendAfterCommit(kind notify.Kind, recipients []string, data map[string]any) {
	if s.Notifier == nil || len(recipients) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.Notifier.Send(ctx, kind, recipients, data); err != nil {
			slogx.FromContext(ctx).Error("notification delivery failed",
				slog.String("kind", string(kind)),
				slog.Any("error", err),
			)
		}
	}()
}
