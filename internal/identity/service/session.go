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
	"github.com/expressmart/identity/pkg/jwtx"
	"github.com/expressmart/identity/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// SessionService mints access tokens and manages the refresh token ledger.
type SessionService struct {
	Store  store.Store
	Signer jwtx.Signer

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// PasswordGrant verifies email+password and returns a fresh token pair.
func (s *SessionService) PasswordGrant(ctx context.Context, email, password string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if email == "" || password == "" {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 1. Resolve the user. Unknown emails and bad passwords are the same
	// failure to the caller.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password grant for unknown email")
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user for password grant", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	// 2. Verify the password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Warn("password grant with wrong password",
				slog.String("user_id", user.ID),
			)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		log.Error("failed to verify password", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	// 3. Mint the pair.
	pair, err := s.mintPair(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("session started",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)

	return pair, nil
}

// RefreshGrant rotates a refresh token: the presented token is revoked and a
// brand new pair is issued. Revoked or expired tokens are rejected.
func (s *SessionService) RefreshGrant(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	fingerprint := cryptox.FingerprintToken(refreshToken)

	// 1. Look the token up by fingerprint.
	stored, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("refresh grant with unknown token")
			return domain.TokenPair{}, ErrInvalidRefresh
		}
		log.Error("failed to fetch refresh token", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	now := time.Now().UTC()
	if stored.Revoked || now.After(stored.ExpiresAt) {
		log.Warn("refresh grant with revoked or expired token",
			slog.String("user_id", stored.UserID),
		)
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefresh
		}
		log.Error("failed to fetch user for refresh grant", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	// 2. Rotate: revoke the old token and store the new one atomically.
	rawRefresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate refresh token", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	next := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(rawRefresh),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fingerprint); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Concurrent rotation consumed it first.
				return ErrInvalidRefresh
			}
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, next)
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidRefresh) {
			log.Error("failed to rotate refresh token", slog.Any("error", err))
		}
		return domain.TokenPair{}, err
	}

	access, err := s.signAccessToken(user, now)
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	log.Debug("session refreshed", slog.String("user_id", user.ID))

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *SessionService) mintPair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.signAccessToken(user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	rawRefresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	stored := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(rawRefresh),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, stored); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *SessionService) signAccessToken(user domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Email, user.Role.String(), s.AccessTTL, s.Issuer, now)
	return s.Signer.Sign(claims)
}
