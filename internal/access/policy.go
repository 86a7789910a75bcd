package access

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// Messages attached to denials. They are shown to callers as is, so none of
// them says whether the target exists.
const (
	ReasonUnauthorized     = "Unauthorized access"
	ReasonSelfUpdate       = "You can only update your full name"
	ReasonSelfDelete       = "You cannot delete yourself"
	ReasonAdminRequired    = "Insufficient permissions"
	ReasonSuperAdminOnly   = "Super admin access required"
	ReasonSuperAdminGrant  = "The super_admin role cannot be granted"
	ReasonPlatformAccount  = "Platform accounts cannot be modified here"
	ReasonTenantAccountReq = "A tenant account is required for this action"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// UserTarget identifies the user record an action is aimed at.
type UserTarget struct {
	ID       uuid.UUID
	TenantID *uuid.UUID
}

// AuthorizeUserUpdate decides an update of target by actor and returns the
// subset of patch the actor may apply. Fields outside that subset are
// dropped, not rejected.
func AuthorizeUserUpdate(actor Claims, target UserTarget, patch models.UserPatch) (models.UserPatch, Decision) {
	scope, err := ScopeOf(actor)
	if err != nil || !scope.Permits(target.TenantID) {
		return models.UserPatch{}, Deny(ReasonUnauthorized)
	}

	self := actor.IsSelf(target.ID)
	if self && (patch.Role != nil || patch.IsActive != nil) {
		return models.UserPatch{}, Deny(ReasonSelfUpdate)
	}
	if !self && !actor.Role.AtLeast(models.RoleTenantAdmin) {
		return models.UserPatch{}, Deny(ReasonAdminRequired)
	}

	allowed := models.UserPatch{FullName: patch.FullName}
	if !self && actor.Role.AtLeast(models.RoleTenantAdmin) {
		allowed.Role = patch.Role
		allowed.IsActive = patch.IsActive
	}

	if allowed.Role != nil && *allowed.Role == models.RoleSuperAdmin {
		return models.UserPatch{}, Deny(ReasonSuperAdminGrant)
	}
	if target.TenantID == nil && !self && (allowed.Role != nil || allowed.IsActive != nil) {
		return models.UserPatch{}, Deny(ReasonPlatformAccount)
	}
	return allowed, Allow()
}

// AuthorizeUserDelete decides a hard delete of target by actor.
func AuthorizeUserDelete(actor Claims, target UserTarget) Decision {
	scope, err := ScopeOf(actor)
	if err != nil || !scope.Permits(target.TenantID) {
		return Deny(ReasonUnauthorized)
	}
	if actor.IsSelf(target.ID) {
		return Deny(ReasonSelfDelete)
	}
	if !actor.Role.AtLeast(models.RoleTenantAdmin) {
		return Deny(ReasonAdminRequired)
	}
	if target.TenantID == nil {
		return Deny(ReasonPlatformAccount)
	}
	return Allow()
}

// AuthorizeUserCreate decides whether actor may add a user with role to
// tenantID.
func AuthorizeUserCreate(actor Claims, tenantID uuid.UUID, role models.Role) Decision {
	if d := AuthorizeUserList(actor, tenantID); !d.Allowed {
		return d
	}
	if role == models.RoleSuperAdmin {
		return Deny(ReasonSuperAdminGrant)
	}
	return Allow()
}

// AuthorizeUserList decides whether actor may see the users of tenantID.
func AuthorizeUserList(actor Claims, tenantID uuid.UUID) Decision {
	scope, err := ScopeOf(actor)
	if err != nil || !scope.PermitsTenant(tenantID) {
		return Deny(ReasonUnauthorized)
	}
	if !actor.Role.AtLeast(models.RoleTenantAdmin) {
		return Deny(ReasonAdminRequired)
	}
	return Allow()
}

// AuthorizeTenantRead lets any member of a tenant, and super admins, read it.
func AuthorizeTenantRead(actor Claims, tenantID uuid.UUID) Decision {
	return AuthorizeResource(actor, tenantID)
}

func AuthorizeTenantList(actor Claims) Decision {
	if actor.Role != models.RoleSuperAdmin {
		return Deny(ReasonSuperAdminOnly)
	}
	return Allow()
}

// AuthorizeTenantUpdate returns the part of patch actor may apply to
// tenantID: nothing for plain users, the name for tenant admins and every
// field for super admins.
func AuthorizeTenantUpdate(actor Claims, tenantID uuid.UUID, patch models.TenantPatch) (models.TenantPatch, Decision) {
	scope, err := ScopeOf(actor)
	if err != nil || !scope.PermitsTenant(tenantID) {
		return models.TenantPatch{}, Deny(ReasonUnauthorized)
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return patch, Allow()
	case models.RoleTenantAdmin:
		return models.TenantPatch{Name: patch.Name}, Allow()
	default:
		return models.TenantPatch{}, Deny(ReasonAdminRequired)
	}
}

// AuthorizeResource gates projects and tasks: any authenticated user whose
// scope covers the owning tenant.
func AuthorizeResource(actor Claims, tenantID uuid.UUID) Decision {
	scope, err := ScopeOf(actor)
	if err != nil || !scope.PermitsTenant(tenantID) {
		return Deny(ReasonUnauthorized)
	}
	return Allow()
}

// AuthorizeProjectCreate returns the tenant a new project belongs to. Only
// tenant-bound accounts create projects since a project needs an owner.
func AuthorizeProjectCreate(actor Claims) (uuid.UUID, Decision) {
	scope, err := ScopeOf(actor)
	if err != nil {
		return uuid.Nil, Deny(ReasonUnauthorized)
	}
	tenantID, ok := scope.Tenant()
	if !ok {
		return uuid.Nil, Deny(ReasonTenantAccountReq)
	}
	return tenantID, Allow()
}
