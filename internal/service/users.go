package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type AddUserInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"fullName"`
	Role     models.Role `json:"role"`
}

type UserListInput struct {
	store.Pagination
	Role   models.Role
	Search string
}

// UserService manages the users of a tenant.
type UserService struct {
	store  store.Store
	hasher PasswordHasher
	now    func() time.Time
}

func NewUserService(st store.Store, hasher PasswordHasher) *UserService {
	return &UserService{store: st, hasher: hasher, now: time.Now}
}

// Add creates a user in tenantID. The tenant's maxUsers is enforced by the
// store inside the insert transaction.
func (s *UserService) Add(ctx context.Context, actor access.Claims, tenantID uuid.UUID, in AddUserInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, validation("role must be tenant_admin or user")
	}
	if d := access.AuthorizeUserCreate(actor, tenantID, role); !d.Allowed {
		return nil, denied(d)
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	fullName, err := required("fullName", in.FullName)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("add user: %w", err)
	}
	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeErr("add user", err, "Tenant")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor access.Claims, tenantID uuid.UUID, in UserListInput) (*Page[*models.User], error) {
	if d := access.AuthorizeUserList(actor, tenantID); !d.Allowed {
		return nil, denied(d)
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, validation("role must be super_admin, tenant_admin or user")
	}

	p := in.Pagination.Normalize(UserPageLimit)
	users, total, err := s.store.ListUsers(ctx, store.UserFilter{
		Pagination: p,
		TenantID:   tenantID,
		Role:       in.Role,
		Search:     in.Search,
	})
	if err != nil {
		return nil, storeErr("list users", err, "User")
	}
	return newPage(users, total, p), nil
}

// Update applies the permitted part of patch to userID. Self-service callers
// may only rename themselves.
func (s *UserService) Update(ctx context.Context, actor access.Claims, userID uuid.UUID, patch models.UserPatch) (*models.User, error) {
	owner, err := s.store.UserTenant(ctx, userID)
	if err != nil {
		return nil, storeErr("resolve user owner", err, "User")
	}

	allowed, d := access.AuthorizeUserUpdate(actor, access.UserTarget{ID: userID, TenantID: owner}, patch)
	if !d.Allowed {
		return nil, denied(d)
	}
	if err := validateUserPatch(&allowed); err != nil {
		return nil, err
	}

	if allowed.IsEmpty() {
		if patch.IsEmpty() {
			return nil, validation(msgNoFields)
		}
		user, err := s.store.GetUser(ctx, userID, owner)
		if err != nil {
			return nil, storeErr("get user", err, "User")
		}
		return user, nil
	}

	user, err := s.store.UpdateUser(ctx, userID, owner, allowed)
	if err != nil {
		return nil, storeErr("update user", err, "User")
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor access.Claims, userID uuid.UUID) error {
	owner, err := s.store.UserTenant(ctx, userID)
	if err != nil {
		return storeErr("resolve user owner", err, "User")
	}
	if d := access.AuthorizeUserDelete(actor, access.UserTarget{ID: userID, TenantID: owner}); !d.Allowed {
		return denied(d)
	}
	if err := s.store.DeleteUser(ctx, userID, *owner); err != nil {
		return storeErr("delete user", err, "User")
	}
	return nil
}
