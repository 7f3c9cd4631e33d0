// Package policy is the single place where "who may do what" is decided.
// It is a pure table over (role, action); everything else in the service
// asks this package instead of re-deriving role logic per endpoint.
package policy

import "github.com/expressmart/identity/internal/identity/domain"

type Action string

const (
	ActionInviteUser         Action = "invite-user"
	ActionListOwnInvitations Action = "list-own-invitations"
	ActionApproveReset       Action = "approve-reset"
	ActionListResetRequests  Action = "list-reset-requests"
	ActionReadOwnProfile     Action = "read-own-profile"
)

// Token-bearing actions (accept-invite, request-reset, confirm-reset) are
// unauthenticated and never consult this table; holding a valid token is
// the entire access control.

var anyAuthenticated = []domain.Role{
	domain.RoleAdmin,
	domain.RoleDirector,
	domain.RoleMarketing,
	domain.RoleInventory,
	domain.RoleAccountant,
	domain.RoleSales,
}

var table = map[Action][]domain.Role{
	ActionInviteUser:         {domain.RoleAdmin, domain.RoleDirector},
	ActionListOwnInvitations: anyAuthenticated,
	ActionApproveReset:       {domain.RoleAdmin},
	ActionListResetRequests:  {domain.RoleAdmin},
	ActionReadOwnProfile:     anyAuthenticated,
}

// Allowed reports whether an actor with the given role may perform the
// action. Unknown roles and unknown actions are denied.
func Allowed(role domain.Role, action Action) bool {
	if !role.Valid() {
		return false
	}
	for _, allowed := range table[action] {
		if role == allowed {
			return true
		}
	}
	return false
}
