package domain

import (
	"errors"
	"fmt"
)

// Role is the closed set of roles a user can hold. Keeping it a typed
// enum (rather than a free string) lets the policy table be exhaustive.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDirector   Role = "director"
	RoleMarketing  Role = "marketing"
	RoleInventory  Role = "inventory"
	RoleAccountant Role = "accountant"
	RoleSales      Role = "sales"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// AllRoles lists every valid role. Order is stable for display purposes.
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleDirector,
		RoleMarketing,
		RoleInventory,
		RoleAccountant,
		RoleSales,
	}
}

// ParseRole validates a role string coming in over the wire.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleMarketing, RoleInventory, RoleAccountant, RoleSales:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
