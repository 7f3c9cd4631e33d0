package policy

import (
	"testing"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	t.Run("invite-user restricted to admin and director", func(t *testing.T) {
		require.True(t, Allowed(domain.RoleAdmin, ActionInviteUser))
		require.True(t, Allowed(domain.RoleDirector, ActionInviteUser))

		for _, r := range []domain.Role{
			domain.RoleMarketing, domain.RoleInventory, domain.RoleAccountant, domain.RoleSales,
		} {
			require.False(t, Allowed(r, ActionInviteUser), "role %s", r)
		}
	})

	t.Run("reset administration is admin only", func(t *testing.T) {
		for _, r := range domain.AllRoles() {
			want := r == domain.RoleAdmin
			require.Equal(t, want, Allowed(r, ActionApproveReset), "approve, role %s", r)
			require.Equal(t, want, Allowed(r, ActionListResetRequests), "list, role %s", r)
		}
	})

	t.Run("self-scoped actions allowed for every role", func(t *testing.T) {
		for _, r := range domain.AllRoles() {
			require.True(t, Allowed(r, ActionReadOwnProfile), "profile, role %s", r)
			require.True(t, Allowed(r, ActionListOwnInvitations), "invitations, role %s", r)
		}
	})

	t.Run("fails closed", func(t *testing.T) {
		require.False(t, Allowed("", ActionInviteUser))
		require.False(t, Allowed("superuser", ActionApproveReset))
		require.False(t, Allowed(domain.RoleAdmin, Action("unknown-action")))
		require.False(t, Allowed("", Action("unknown-action")))
	})
}
