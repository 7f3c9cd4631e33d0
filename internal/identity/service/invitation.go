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
	ErrNotAllowed            = errors.New("caller is not allowed to perform this action")
	ErrInvalidInviteRequest  = errors.New("invalid invitation request")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationExpired     = errors.New("invitation has expired")
	ErrInviteAlreadyAccepted = errors.New("invitation has already been accepted")
	ErrDuplicateEmail        = errors.New("email already registered")
)

// notifyTimeout bounds post-commit email delivery so a slow SMTP server
// cannot pin goroutines forever.
const notifyTimeout = 30 * time.Second

type InvitationService struct {
	Store    store.Store
	Notifier notify.Sender

	// TTL is how long an invitation token stays redeemable.
	TTL time.Duration

	// BaseURL is the dashboard origin used to build invitation links.
	BaseURL string
}

// Issue mints a single-use invitation for the given email and role. The raw
// token is returned exactly once; only its fingerprint is stored.
func (s *InvitationService) Issue(
	ctx context.Context,
	actor domain.Actor,
	email string,
	role domain.Role,
) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx)

	// 1. Roles gate invitation issuance, not token possession.
	if !policy.Allowed(actor.Role, policy.ActionInviteUser) {
		log.Warn("invitation issuance denied",
			slog.String("actor_id", actor.UserID),
			slog.String("actor_role", actor.Role.String()),
		)
		return domain.Invitation{}, "", ErrNotAllowed
	}

	// 2. The invited role must come from the closed enum.
	if !role.Valid() {
		log.Warn("invitation requested with unknown role",
			slog.String("role", role.String()),
		)
		return domain.Invitation{}, "", domain.ErrUnknownRole
	}

	if email == "" {
		return domain.Invitation{}, "", ErrInvalidInviteRequest
	}

	// 3. Generate and fingerprint the token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(token),
		Email:     email,
		Role:      role,
		InvitedBy: actor.UserID,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, "", err
	}

	log.Info("invitation issued",
		slog.String("invitation_id", inv.ID),
		slog.String("email", email),
		slog.String("role", role.String()),
		slog.String("invited_by", actor.UserID),
	)

	// 4. Deliver the invitation link after the row is committed. Failures
	// are logged, never surfaced to the issuer.
	s.sendAfterCommit(notify.KindInvitation, []string{email}, map[string]any{
		"Role":      role.String(),
		"Link":      s.BaseURL + "/invitations/accept?token=" + token,
		"ExpiresAt": inv.ExpiresAt.Format(time.RFC3339),
	})

	return inv, token, nil
}

// Redeem exchanges an invitation token for a new user account. Error
// precedence is fixed: unknown token, then already accepted, then expired.
func (s *InvitationService) Redeem(
	ctx context.Context,
	token string,
	firstName string,
	lastName string,
	password string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input.
	if token == "" || password == "" {
		return domain.User{}, ErrInvalidInviteRequest
	}

	// 2. Fingerprint the token and look the invitation up regardless of
	// state so the failure reported matches the actual state.
	inv, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("invitation redemption attempted with unknown token")
			return domain.User{}, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Accepted wins over expired for invitations that are both.
	if inv.Accepted {
		log.Warn("invitation redemption attempted twice",
			slog.String("invitation_id", inv.ID),
		)
		return domain.User{}, ErrInviteAlreadyAccepted
	}
	if inv.Expired(time.Now().UTC()) {
		log.Warn("invitation redemption attempted after expiry",
			slog.String("invitation_id", inv.ID),
		)
		return domain.User{}, ErrInvitationExpired
	}

	// 4. Hash the password before opening the transaction.
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 5. Create the user and consume the invitation atomically. The
	// conditional accept write is the race arbiter when two redemptions
	// carry the same token.
	now := time.Now().UTC()
	newUser := domain.User{
		ID:           idx.New().String(),
		Email:        inv.Email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Role:         inv.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, newUser); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}

		if err := tx.Invitations().MarkInvitationAccepted(ctx, inv.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Another redemption committed first.
				return ErrInviteAlreadyAccepted
			}
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrInviteAlreadyAccepted) {
			log.Warn("invitation redemption lost",
				slog.String("invitation_id", inv.ID),
				slog.Any("reason", err),
			)
		} else {
			log.Error("failed to redeem invitation",
				slog.String("invitation_id", inv.ID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, err
	}

	log.Info("user registered via invitation",
		slog.String("user_id", newUser.ID),
		slog.String("email", newUser.Email),
		slog.String("invitation_id", inv.ID),
		slog.String("role", newUser.Role.String()),
	)

	return newUser, nil
}

// ListByInviter returns the invitations the actor has issued. Any role may
// view its own invitations.
func (s *InvitationService) ListByInviter(ctx context.Context, actor domain.Actor) ([]domain.Invitation, error) {
	if !policy.Allowed(actor.Role, policy.ActionListOwnInvitations) {
		return nil, ErrNotAllowed
	}
	return s.Store.Invitations().ListInvitationsByInviter(ctx, actor.UserID)
}

// sendAfterCommit fires a notification in the background with its own
// timeout so request latency never includes SMTP round trips.
func (s *InvitationService) sendAfterCommit(kind notify.Kind, recipients []string, data map[string]any) {
	if s.Notifier == nil {
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
