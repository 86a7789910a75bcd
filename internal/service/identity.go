package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/auth"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type RegisterTenantInput struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
	AdminFullName string `json:"adminFullName"`
}

type Registration struct {
	TenantID  uuid.UUID    `json:"tenantId"`
	Subdomain string       `json:"subdomain"`
	AdminUser *models.User `json:"adminUser"`
}

// LoginInput carries credentials. An empty TenantSubdomain selects the
// platform (super admin) login path.
type LoginInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      *models.User `json:"user"`
}

// IdentityService registers tenants and authenticates users.
type IdentityService struct {
	store       store.Store
	hasher      PasswordHasher
	tokens      *auth.TokenManager
	revocations SessionRevoker
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewIdentityService creates a new IdentityService. revocations may be nil,
// in which case logout is not supported and tokens live until expiry.
func NewIdentityService(st store.Store, hasher PasswordHasher, tokens *auth.TokenManager, revocations SessionRevoker) *IdentityService {
	return &IdentityService{
		store:       st,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		now:         time.Now,
	}
}

// RegisterTenant creates a tenant on the free plan together with its first
// tenant_admin. Both rows are written atomically.
func (s *IdentityService) RegisterTenant(ctx context.Context, in RegisterTenantInput) (*Registration, error) {
	name, err := required("tenantName", in.TenantName)
	if err != nil {
		return nil, err
	}
	subdomain, err := normalizeSubdomain(in.Subdomain)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.AdminEmail)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.AdminPassword); err != nil {
		return nil, err
	}
	fullName, err := required("adminFullName", in.AdminFullName)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("register tenant: %w", err)
	}

	now := s.now().UTC()
	tenant := &models.Tenant{
		ID:               uuid.New(),
		Name:             name,
		Subdomain:        subdomain,
		Status:           models.TenantActive,
		SubscriptionPlan: models.DefaultPlan,
		MaxUsers:         models.DefaultMaxUsers,
		MaxProjects:      models.DefaultMaxProjects,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	admin := &models.User{
		ID:           uuid.New(),
		TenantID:     &tenant.ID,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         models.RoleTenantAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.RegisterTenant(ctx, tenant, admin); err != nil {
		return nil, storeErr("register tenant", err, "Tenant")
	}

	slog.Info("tenant registered", "tenant_id", tenant.ID, "subdomain", subdomain)
	return &Registration{TenantID: tenant.ID, Subdomain: subdomain, AdminUser: admin}, nil
}

// Authenticate checks credentials and issues a session. The lookup path is
// chosen before any query: without a subdomain only platform accounts are
// searched, with one only that tenant's users. Every credential failure
// returns the same error.
func (s *IdentityService) Authenticate(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, validation("email and password are required")
	}

	var tenantID *uuid.UUID
	if subdomain := strings.ToLower(strings.TrimSpace(in.TenantSubdomain)); subdomain != "" {
		tenant, err := s.store.GetTenantBySubdomain(ctx, subdomain)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &Error{Kind: ErrNotFound, Code: CodeTenantNotFound, Message: "Tenant not found"}
		}
		if err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		if tenant.Status != models.TenantActive {
			return nil, &Error{Kind: ErrForbidden, Code: CodeTenantInactive, Message: "Tenant is not active"}
		}
		tenantID = &tenant.ID
	}

	user, err := s.store.GetUserByEmail(ctx, email, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.Verify(in.Password, s.dummy())
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) || !user.IsActive {
		return nil, invalidCredentials()
	}
	if tenantID == nil && user.Role != models.RoleSuperAdmin {
		return nil, invalidCredentials()
	}

	token, session, err := s.IssueSession(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(session.ExpiresAt.Sub(session.IssuedAt) / time.Second),
		User:      user,
	}, nil
}

// dummy returns a hash to compare against when no user matched, so a miss
// costs the same as a wrong password.
func (s *IdentityService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// IssueSession signs a token carrying the user's id, tenant and role.
func (s *IdentityService) IssueSession(user *models.User) (string, auth.Session, error) {
	token, session, err := s.tokens.Issue(access.Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	})
	if err != nil {
		return "", auth.Session{}, fmt.Errorf("issue session: %w", err)
	}
	return token, session, nil
}

// VerifySession parses the token and rejects revoked sessions.
func (s *IdentityService) VerifySession(ctx context.Context, token string) (auth.Session, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Session{}, invalidToken(err)
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsSessionRevoked(ctx, session.ID)
		if err != nil {
			return auth.Session{}, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return auth.Session{}, invalidToken(errors.New("session revoked"))
		}
	}
	return session, nil
}

// CurrentUser loads the caller's own record and tenant. A token whose user
// has since been deleted or deactivated is treated as invalid.
func (s *IdentityService) CurrentUser(ctx context.Context, actor access.Claims) (*models.CurrentUser, error) {
	user, err := s.store.GetUser(ctx, actor.UserID, actor.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalidToken(err)
	}
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if !user.IsActive {
		return nil, invalidToken(errors.New("user deactivated"))
	}

	current := &models.CurrentUser{User: *user}
	if user.TenantID != nil {
		tenant, err := s.store.GetTenant(ctx, *user.TenantID)
		if err != nil {
			return nil, storeErr("current user tenant", err, "Tenant")
		}
		current.Tenant = tenant
	}
	return current, nil
}

// Logout revokes the session for the rest of its lifetime.
func (s *IdentityService) Logout(ctx context.Context, session auth.Session) error {
	if s.revocations == nil {
		return nil
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.revocations.RevokeSession(ctx, session.ID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// EnsureSuperAdmin creates the platform account if no super admin with that
// email exists. It reports whether an account was created.
func (s *IdentityService) EnsureSuperAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}
	fullName, err = required("fullName", fullName)
	if err != nil {
		return false, err
	}

	_, err = s.store.GetUserByEmail(ctx, email, nil)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("ensure super admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("ensure super admin: %w", err)
	}
	now := s.now().UTC()
	err = s.store.CreateUser(ctx, &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return false, storeErr("ensure super admin", err, "User")
	}
	return true, nil
}
