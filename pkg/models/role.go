package models

// Role is a user's position in the hierarchy super_admin > tenant_admin > user.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

var roleRank = map[Role]int{
	RoleUser:        1,
	RoleTenantAdmin: 2,
	RoleSuperAdmin:  3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles rank below
// everything.
func (r Role) AtLeast(min Role) bool {
	rank := roleRank[r]
	return rank > 0 && rank >= roleRank[min]
}
