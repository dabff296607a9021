package core

import (
	"fmt"
	"slices"
)

// Role is the authorization role of an authenticated user.
type Role string

const (
	RoleCustomer   Role = "customer"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation.
// It is supplied by the adapter (JWT claims, CLI flags) and trusted by the core.
type Actor struct {
	UserID int64
	Role   Role
}

// Staff roles may dispense prescriptions, adjust stock and fulfil orders.
var staffRoles = []Role{RolePharmacist, RoleAdmin}

// IsStaff reports whether the actor holds a pharmacist or admin role.
func (a Actor) IsStaff() bool {
	return slices.Contains(staffRoles, a.Role)
}

// RequireRole returns ErrUnauthorized unless the actor holds one of allowed.
func (a Actor) RequireRole(allowed ...Role) error {
	if slices.Contains(allowed, a.Role) {
		return nil
	}
	return fmt.Errorf("%w: role %q may not perform this operation", ErrUnauthorized, a.Role)
}
