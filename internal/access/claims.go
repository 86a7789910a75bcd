// Package access holds the tenant isolation guard and the role-based
// authorization policy. Everything here is a pure function of its inputs.
package access

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// Claims is the identity carried by a verified session.
type Claims struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     models.Role
}

// IsSelf reports whether the claims belong to userID.
func (c Claims) IsSelf(userID uuid.UUID) bool {
	return c.UserID == userID
}
