package domain

import dErrors "rtscore/pkg/domain-errors"

// Role is the actor's function within (or above) an institution. The
// super_admin role is the only one not bound to a tenant.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleDirector     Role = "institution_director"
	RoleStaffManager Role = "staff_manager"
	RoleAccountant   Role = "accountant"
	RoleReceptionist Role = "receptionist"
	RoleStaff        Role = "staff"
	RoleStudent      Role = "student"
)

var validRoles = map[Role]struct{}{
	RoleSuperAdmin:   {},
	RoleDirector:     {},
	RoleStaffManager: {},
	RoleAccountant:   {},
	RoleReceptionist: {},
	RoleStaff:        {},
	RoleStudent:      {},
}

func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if _, ok := validRoles[r]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", raw)
	}
	return r, nil
}

// Actor is the authenticated caller as handed over by the session layer.
// The core never sees credentials; it trusts this descriptor.
// Tenant is nil only for super_admin.
type Actor struct {
	ID     UserID
	Role   Role
	Tenant *TenantID
}

// Validate enforces the role/tenant binding invariant: super_admin has no
// tenant, everyone else has exactly one.
func (a Actor) Validate() error {
	if _, ok := validRoles[a.Role]; !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown role %q", a.Role)
	}
	if a.Role == RoleSuperAdmin {
		if a.Tenant != nil {
			return dErrors.New(dErrors.CodeValidation, "super_admin must not carry a tenant binding")
		}
		return nil
	}
	if a.Tenant == nil || a.Tenant.IsNil() {
		return dErrors.Newf(dErrors.CodeValidation, "role %q requires a tenant binding", a.Role)
	}
	return nil
}
