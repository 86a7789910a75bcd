package access

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// ErrUnboundClaims is returned for a non super admin claim with no tenant.
var ErrUnboundClaims = errors.New("claims carry no tenant")

// Scope is the set of tenants a request may touch: either every tenant or
// exactly one.
type Scope struct {
	tenantID     uuid.UUID
	unrestricted bool
}

// ScopeOf derives the effective scope from verified claims.
func ScopeOf(c Claims) (Scope, error) {
	if c.Role == models.RoleSuperAdmin {
		return Scope{unrestricted: true}, nil
	}
	if !c.Role.Valid() || c.TenantID == nil || *c.TenantID == uuid.Nil {
		return Scope{}, ErrUnboundClaims
	}
	return Scope{tenantID: *c.TenantID}, nil
}

// Unrestricted reports whether the scope spans every tenant.
func (s Scope) Unrestricted() bool {
	return s.unrestricted
}

// Tenant returns the tenant the scope is fixed to. ok is false for an
// unrestricted scope.
func (s Scope) Tenant() (id uuid.UUID, ok bool) {
	return s.tenantID, !s.unrestricted
}

// PermitsTenant reports whether a resource owned by id is reachable.
func (s Scope) PermitsTenant(id uuid.UUID) bool {
	return s.unrestricted || s.tenantID == id
}

// Permits is PermitsTenant for owners that may be absent. A resource with no
// tenant (a platform account) is reachable only from an unrestricted scope.
func (s Scope) Permits(id *uuid.UUID) bool {
	if id == nil {
		return s.unrestricted
	}
	return s.PermitsTenant(*id)
}

// ListTenant picks the tenant predicate for a list query. A nil result means
// no predicate, which only an unrestricted scope can get.
func (s Scope) ListTenant(requested *uuid.UUID) (*uuid.UUID, Decision) {
	if s.unrestricted {
		return requested, Allow()
	}
	if requested != nil && *requested != s.tenantID {
		return nil, Deny(ReasonUnauthorized)
	}
	id := s.tenantID
	return &id, Allow()
}
