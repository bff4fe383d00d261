// Package access is the single authorization gate for the restaurant and
// customer principal hierarchies. Callers ask for a Decision before any
// mutating operation instead of comparing roles inline.
package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/enum"
)

// ErrNotAuthorized is wrapped by every denied Decision.
var ErrNotAuthorized = errors.New("not authorized")

// Principal is the authenticated caller.
type Principal struct {
	ID     uuid.UUID
	Kind   string
	Role   string
	Status string
}

// FromClaims builds a Principal from validated token claims.
func FromClaims(c *auth.Claims) Principal {
	if c == nil {
		return Principal{}
	}
	return Principal{ID: c.PrincipalID, Kind: c.Kind, Role: c.Role, Status: c.Status}
}

func (p Principal) IsAdmin() bool {
	return p.Kind == enum.PrincipalAdmin
}

func (p Principal) IsCustomer() bool {
	return p.Kind == enum.PrincipalCustomer
}

func (p Principal) IsSuperAdmin() bool {
	return p.IsAdmin() && p.Role == enum.AdminRoleSuperAdmin
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Err returns nil for an allowed decision and a wrapped ErrNotAuthorized otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotAuthorized, d.Reason)
}

// CanAdminLogin: super-admins bypass approval, everyone else must be approved.
func CanAdminLogin(role, status string) Decision {
	if role == enum.AdminRoleSuperAdmin {
		return allow("super-admin")
	}
	switch status {
	case enum.AdminStatusApproved:
		return allow("approved")
	case enum.AdminStatusRejected:
		return deny("admin account has been rejected")
	default:
		return deny("admin account is pending approval")
	}
}

// CanActAsAdmin checks that an admin principal may use admin-scoped endpoints.
// Token status is re-checked so a token minted before a rejection stops working
// once it is refreshed.
func CanActAsAdmin(p Principal) Decision {
	if !p.IsAdmin() {
		return deny("admin access required")
	}
	return CanAdminLogin(p.Role, p.Status)
}

// CanMutate allows a super-admin, or the admin whose id equals ownerID.
func CanMutate(p Principal, ownerID uuid.UUID) Decision {
	if !p.IsAdmin() {
		return deny("admin access required")
	}
	if p.IsSuperAdmin() {
		return allow("super-admin")
	}
	if ownerID != uuid.Nil && p.ID == ownerID {
		return allow("owner")
	}
	return deny("resource belongs to another restaurant")
}

// OwnerScope returns the owner filter a listing must apply. scoped is false
// for super-admins, who see everything.
func OwnerScope(p Principal) (ownerID uuid.UUID, scoped bool) {
	if p.IsSuperAdmin() {
		return uuid.Nil, false
	}
	return p.ID, true
}

// CanViewOrder allows the ordering customer, the restaurant admin and super-admins.
func CanViewOrder(p Principal, customerID, restaurantID uuid.UUID) Decision {
	switch {
	case p.IsCustomer() && p.ID == customerID:
		return allow("order owner")
	case p.IsSuperAdmin():
		return allow("super-admin")
	case p.IsAdmin() && p.ID == restaurantID:
		if d := CanActAsAdmin(p); !d.Allowed {
			return d
		}
		return allow("restaurant")
	}
	return deny("order belongs to someone else")
}

// CanActForCustomer allows only the customer identified by customerID.
func CanActForCustomer(p Principal, customerID uuid.UUID) Decision {
	if p.IsCustomer() && p.ID == customerID {
		return allow("order owner")
	}
	return deny("only the ordering customer may do this")
}

// RequireSuperAdmin allows only super-admins.
func RequireSuperAdmin(p Principal) Decision {
	if p.IsSuperAdmin() {
		return allow("super-admin")
	}
	return deny("super-admin access required")
}
