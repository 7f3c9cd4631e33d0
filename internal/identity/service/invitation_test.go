package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/stretchr/testify/require"
)

func newInvitationService(t *testing.T) (*service.InvitationService, *recordingSender, domain.User) {
	t.Helper()

	s := newTestStore(t)
	admin := bootstrapAdmin(t, s)
	sender := &recordingSender{}

	svc := &service.InvitationService{
		Store:    s,
		Notifier: sender,
		TTL:      20 * time.Minute,
		BaseURL:  "https://dashboard.example.com",
	}
	return svc, sender, admin
}

func TestInvitationIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("admin can invite and the email carries the link", func(t *testing.T) {
		svc, sender, admin := newInvitationService(t)

		inv, token, err := svc.Issue(ctx, domain.Actor{UserID: admin.ID, Role: admin.Role},
			"bob@example.com", domain.RoleSales)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.Equal(t, "bob@example.com", inv.Email)
		require.Equal(t, domain.RoleSales, inv.Role)
		require.NotEqual(t, token, inv.TokenHash)

		waitFor(t, func() bool { return sender.count() == 1 })
		got := sender.last()
		require.Equal(t, []string{"bob@example.com"}, got.Recipients)
		require.Contains(t, got.Data["Link"], token)
	})

	t.Run("sales cannot invite", func(t *testing.T) {
		svc, _, _ := newInvitationService(t)

		_, _, err := svc.Issue(ctx, domain.Actor{UserID: "someone", Role: domain.RoleSales},
			"bob@example.com", domain.RoleSales)
		require.ErrorIs(t, err, service.ErrNotAllowed)
	})

	t.Run("anonymous cannot invite", func(t *testing.T) {
		svc, _, _ := newInvitationService(t)

		_, _, err := svc.Issue(ctx, domain.Actor{}, "bob@example.com", domain.RoleSales)
		require.ErrorIs(t, err, service.ErrNotAllowed)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)

		_, _, err := svc.Issue(ctx, domain.Actor{UserID: admin.ID, Role: admin.Role},
			"bob@example.com", domain.Role("superuser"))
		require.ErrorIs(t, err, domain.ErrUnknownRole)
	})
}

func TestInvitationRedeem(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, svc *service.InvitationService, admin domain.User, email string) string {
		t.Helper()
		_, token, err := svc.Issue(ctx, domain.Actor{UserID: admin.ID, Role: admin.Role},
			email, domain.RoleSales)
		require.NoError(t, err)
		return token
	}

	t.Run("happy path creates the user with the invited role", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		token := issue(t, svc, admin, "bob@example.com")

		user, err := svc.Redeem(ctx, token, "Bob", "Builder", "a strong password")
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", user.Email)
		require.Equal(t, domain.RoleSales, user.Role)
		require.NotEqual(t, "a strong password", user.PasswordHash)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, _, _ := newInvitationService(t)

		_, err := svc.Redeem(ctx, "no-such-token", "Bob", "Builder", "a strong password")
		require.ErrorIs(t, err, service.ErrInvitationNotFound)
	})

	t.Run("second redemption reports already accepted", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		token := issue(t, svc, admin, "bob@example.com")

		_, err := svc.Redeem(ctx, token, "Bob", "Builder", "a strong password")
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, token, "Eve", "Intruder", "another password")
		require.ErrorIs(t, err, service.ErrInviteAlreadyAccepted)
	})

	t.Run("accepted wins over expired", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		svc.TTL = 50 * time.Millisecond
		token := issue(t, svc, admin, "bob@example.com")

		_, err := svc.Redeem(ctx, token, "Bob", "Builder", "a strong password")
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		_, err = svc.Redeem(ctx, token, "Eve", "Intruder", "another password")
		require.ErrorIs(t, err, service.ErrInviteAlreadyAccepted)
	})

	t.Run("expired invitation", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		svc.TTL = 10 * time.Millisecond
		token := issue(t, svc, admin, "bob@example.com")

		time.Sleep(20 * time.Millisecond)

		_, err := svc.Redeem(ctx, token, "Bob", "Builder", "a strong password")
		require.ErrorIs(t, err, service.ErrInvitationExpired)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		token := issue(t, svc, admin, "admin@example.com")

		_, err := svc.Redeem(ctx, token, "Imp", "Oster", "a strong password")
		require.ErrorIs(t, err, service.ErrDuplicateEmail)
	})

	t.Run("parallel redemptions produce exactly one account", func(t *testing.T) {
		svc, _, admin := newInvitationService(t)
		token := issue(t, svc, admin, "bob@example.com")

		const attempts = 8
		var wg sync.WaitGroup
		errs := make([]error, attempts)

		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = svc.Redeem(ctx, token, "Bob", "Builder", "a strong password")
			}()
		}
		wg.Wait()

		var wins int
		for _, err := range errs {
			if err == nil {
				wins++
			}
		}
		require.Equal(t, 1, wins)
	})
}

func TestInvitationListByInviter(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newInvitationService(t)

	actor := domain.Actor{UserID: admin.ID, Role: admin.Role}
	_, _, err := svc.Issue(ctx, actor, "one@example.com", domain.RoleSales)
	require.NoError(t, err)
	_, _, err = svc.Issue(ctx, actor, "two@example.com", domain.RoleMarketing)
	require.NoError(t, err)

	list, err := svc.ListByInviter(ctx, actor)
	require.NoError(t, err)
	require.Len(t, list, 2)

	t.Run("anonymous cannot list", func(t *testing.T) {
		_, err := svc.ListByInviter(ctx, domain.Actor{})
		require.ErrorIs(t, err, service.ErrNotAllowed)
	})
}
