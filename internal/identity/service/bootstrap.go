package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/pkg/cryptox"
	"github.com/expressmart/identity/pkg/idx"
	"github.com/expressmart/identity/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService creates the first admin account. Every later account
// enters through an invitation, so this only works on an empty database and
// is guarded by a pre-shared token.
type BootstrapService struct {
	Store store.Store
	Token string // Pre-configured bootstrap token
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the initial admin user.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	email string,
	firstName string,
	lastName string,
	password string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Check if already bootstrapped
	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return domain.User{}, err
	} else if bootstrapped {
		log.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.User{}, ErrBootstrapAlready
	}

	// 2. Validate provided token
	if s.Token == "" || token != s.Token {
		log.Warn("unauthorized bootstrap attempt")
		return domain.User{}, ErrBootstrapUnauthorized
	}

	if email == "" || len(password) < minResetPasswordLength {
		return domain.User{}, ErrInvalidInviteRequest
	}

	// 3. Hash password
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash admin password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 4. Create the admin. Emptiness is re-checked inside the transaction
	// so concurrent bootstraps cannot both land.
	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}
		return tx.Users().CreateUser(ctx, admin)
	})
	if err != nil {
		if !errors.Is(err, ErrBootstrapAlready) {
			log.Error("failed to create bootstrap admin", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	log.Info("system bootstrapped",
		slog.String("admin_id", admin.ID),
		slog.String("email", admin.Email),
	)

	return admin, nil
}
