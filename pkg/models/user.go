package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. TenantID is nil only for super admins.
// The password hash never leaves the process.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     *uuid.UUID `json:"tenantId"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CurrentUser is the GET /me projection.
type CurrentUser struct {
	User
	Tenant *Tenant `json:"tenant"`
}

type UserPatch struct {
	FullName *string `json:"fullName"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"isActive"`
}

func (p UserPatch) IsEmpty() bool {
	return p.FullName == nil && p.Role == nil && p.IsActive == nil
}

func (p UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
