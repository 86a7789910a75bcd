// Package service implements the tenant, user, project and task lifecycle
// managers. Every operation takes the caller's verified claims, resolves the
// tenant scope, consults the access policy and only then touches the store.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
)

// Default page sizes per resource.
const (
	TenantPageLimit  = 10
	UserPageLimit    = 50
	ProjectPageLimit = 20
	TaskPageLimit    = 20
)

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T
	Total      int
	Pagination store.Pagination
}

func newPage[T any](items []T, total int, p store.Pagination) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Pagination: p}
}

// PasswordHasher is the one-way hash used for stored credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// SessionRevoker records logged-out sessions until their tokens expire.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// reachable turns an ownership lookup into the tenant predicate for the
// follow-up query. Absent resources are NotFound; resources owned by a
// tenant outside the actor's scope are Forbidden with the generic message.
func reachable(actor access.Claims, owner uuid.UUID, lookupErr error, what string) (uuid.UUID, error) {
	if lookupErr != nil {
		return uuid.Nil, storeErr("resolve "+what+" owner", lookupErr, what)
	}
	if d := access.AuthorizeResource(actor, owner); !d.Allowed {
		return uuid.Nil, denied(d)
	}
	return owner, nil
}
