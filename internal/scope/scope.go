// Package scope gates every read and write in the core. A Scope is derived
// once per request from the actor descriptor and intersected with each
// query; a query that would cross the boundary fails with a scope violation
// rather than silently filtering. This is a security boundary, not a
// convenience filter.
package scope

import (
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Scope is the tenant partition a caller may touch. The zero value is
// unusable; always construct through Resolve.
type Scope struct {
	all    bool
	tenant domain.TenantID
}

// Resolve yields the institution scope for an actor. The super_admin role
// yields the unrestricted scope; every other role yields exactly the
// actor's tenant.
func Resolve(actor domain.Actor) (Scope, error) {
	if err := actor.Validate(); err != nil {
		return Scope{}, err
	}
	if actor.Role == domain.RoleSuperAdmin {
		return Scope{all: true}, nil
	}
	return Scope{tenant: *actor.Tenant}, nil
}

// All reports whether the scope is unrestricted (super_admin read path).
func (s Scope) All() bool { return s.all }

// Tenant returns the single tenant the scope is bound to. Only meaningful
// when All is false.
func (s Scope) Tenant() domain.TenantID { return s.tenant }

// Check rejects access to an entity owned by another tenant. Returning an
// error instead of a boolean keeps call sites from forgetting the failure
// branch.
func (s Scope) Check(owner domain.TenantID) error {
	if s.all || s.tenant == owner {
		return nil
	}
	return dErrors.New(dErrors.CodeScopeViolation, "entity belongs to another institution")
}
