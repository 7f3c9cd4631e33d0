package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/notify"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/stretchr/testify/require"
)

type resetFixture struct {
	store    store.Store
	sender   *recordingSender
	reset    *service.ResetService
	session  *service.SessionService
	admin    domain.User
	user     domain.User
	password string
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	ctx := context.Background()

	s := newTestStore(t)
	admin := bootstrapAdmin(t, s)
	sender := &recordingSender{}

	invSvc := &service.InvitationService{
		Store: s, TTL: 20 * time.Minute, BaseURL: "https://dashboard.example.com",
	}
	_, token, err := invSvc.Issue(ctx, domain.Actor{UserID: admin.ID, Role: admin.Role},
		"bob@example.com", domain.RoleSales)
	require.NoError(t, err)

	const password = "a strong password"
	user, err := invSvc.Redeem(ctx, token, "Bob", "Builder", password)
	require.NoError(t, err)

	return &resetFixture{
		store:  s,
		sender: sender,
		reset: &service.ResetService{
			Store:    s,
			Notifier: sender,
			TTL:      20 * time.Minute,
			BaseURL:  "https://dashboard.example.com",
		},
		session:  newSessionService(s),
		admin:    admin,
		user:     user,
		password: password,
	}
}

// requestAndApprove walks the two-step flow and returns the raw reset token
// captured from the approval email.
func (f *resetFixture) requestAndApprove(t *testing.T) (requestID, token string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.reset.Request(ctx, f.user.Email))

	list, err := f.reset.List(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	requestID = list[0].ID

	before := f.sender.count()
	require.NoError(t, f.reset.Approve(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role}, requestID))

	waitFor(t, func() bool { return f.sender.count() > before })
	got := f.sender.last()
	require.Equal(t, notify.KindResetApproved, got.Kind)
	return requestID, list[0].Token
}

func TestResetRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("alerts every admin", func(t *testing.T) {
		f := newResetFixture(t)

		require.NoError(t, f.reset.Request(ctx, f.user.Email))

		waitFor(t, func() bool { return f.sender.count() == 1 })
		got := f.sender.last()
		require.Equal(t, notify.KindAdminResetRequest, got.Kind)
		require.Equal(t, []string{f.admin.Email}, got.Recipients)
		require.Equal(t, f.user.Email, got.Data["UserEmail"])
	})

	t.Run("unknown email is reported by default", func(t *testing.T) {
		f := newResetFixture(t)

		err := f.reset.Request(ctx, "nobody@example.com")
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("unknown email is masked when configured", func(t *testing.T) {
		f := newResetFixture(t)
		f.reset.Policy.MaskUnknownEmail = true

		require.NoError(t, f.reset.Request(ctx, "nobody@example.com"))
		require.Equal(t, 0, f.sender.count())
	})
}

func TestResetApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("only admins approve", func(t *testing.T) {
		f := newResetFixture(t)
		require.NoError(t, f.reset.Request(ctx, f.user.Email))

		list, err := f.reset.List(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role})
		require.NoError(t, err)

		err = f.reset.Approve(ctx, domain.Actor{UserID: f.user.ID, Role: f.user.Role}, list[0].ID)
		require.ErrorIs(t, err, service.ErrNotAllowed)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newResetFixture(t)

		err := f.reset.Approve(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role}, "missing")
		require.ErrorIs(t, err, service.ErrResetNotFound)
	})

	t.Run("double approval reports not found", func(t *testing.T) {
		f := newResetFixture(t)
		requestID, _ := f.requestAndApprove(t)

		err := f.reset.Approve(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role}, requestID)
		require.ErrorIs(t, err, service.ErrResetNotFound)
	})

	t.Run("expired approval allowed by default", func(t *testing.T) {
		f := newResetFixture(t)
		f.reset.TTL = -time.Minute
		require.NoError(t, f.reset.Request(ctx, f.user.Email))

		list, err := f.reset.List(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role})
		require.NoError(t, err)

		err = f.reset.Approve(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role}, list[0].ID)
		require.NoError(t, err)
	})

	t.Run("expired approval refused when configured", func(t *testing.T) {
		f := newResetFixture(t)
		f.reset.TTL = -time.Minute
		f.reset.Policy.RejectExpiredApproval = true
		require.NoError(t, f.reset.Request(ctx, f.user.Email))

		list, err := f.reset.List(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role})
		require.NoError(t, err)

		err = f.reset.Approve(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role}, list[0].ID)
		require.ErrorIs(t, err, service.ErrResetExpired)
	})
}

func TestResetConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the new password and revokes sessions", func(t *testing.T) {
		f := newResetFixture(t)

		// An active session that must die with the reset.
		pair, err := f.session.PasswordGrant(ctx, f.user.Email, f.password)
		require.NoError(t, err)

		_, token := f.requestAndApprove(t)

		require.NoError(t, f.reset.Confirm(ctx, token, "a brand new password"))

		// Old password out, new password in.
		_, err = f.session.PasswordGrant(ctx, f.user.Email, f.password)
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
		_, err = f.session.PasswordGrant(ctx, f.user.Email, "a brand new password")
		require.NoError(t, err)

		// The pre-reset refresh token is dead.
		_, err = f.session.RefreshGrant(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("unapproved token looks unknown", func(t *testing.T) {
		f := newResetFixture(t)
		require.NoError(t, f.reset.Request(ctx, f.user.Email))

		list, err := f.reset.List(ctx, domain.Actor{UserID: f.admin.ID, Role: f.admin.Role})
		require.NoError(t, err)

		err = f.reset.Confirm(ctx, list[0].Token, "a brand new password")
		require.ErrorIs(t, err, service.ErrResetNotFound)
	})

	t.Run("token is single use", func(t *testing.T) {
		f := newResetFixture(t)
		_, token := f.requestAndApprove(t)

		require.NoError(t, f.reset.Confirm(ctx, token, "a brand new password"))

		err := f.reset.Confirm(ctx, token, "yet another password")
		require.ErrorIs(t, err, service.ErrResetNotFound)
	})

	t.Run("expired token reported and row kept", func(t *testing.T) {
		f := newResetFixture(t)
		f.reset.TTL = time.Second
		requestID, token := f.requestAndApprove(t)

		f.reset.TTL = 20 * time.Minute
		time.Sleep(1100 * time.Millisecond)

		err := f.reset.Confirm(ctx, token, "a brand new password")
		require.ErrorIs(t, err, service.ErrResetExpired)

		// The row survives for audit until housekeeping sweeps it.
		_, err = f.store.ResetRequests().GetResetRequestByID(ctx, requestID)
		require.NoError(t, err)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		f := newResetFixture(t)
		_, token := f.requestAndApprove(t)

		err := f.reset.Confirm(ctx, token, "short")
		require.ErrorIs(t, err, service.ErrWeakPassword)
	})
}
