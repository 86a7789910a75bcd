package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

var (
	ErrDuplicateSubdomain = fmt.Errorf("subdomain already registered: %w", ErrDuplicateKey)
	ErrDuplicateEmail     = fmt.Errorf("email already registered: %w", ErrDuplicateKey)
)

// ErrLimitReached is returned when an insert would exceed the tenant's
// subscription limits (maxUsers, maxProjects).
var ErrLimitReached = errors.New("tenant limit reached")

// ErrOutOfScope is returned when a referenced row exists outside the tenant
// the write was scoped to.
var ErrOutOfScope = errors.New("referenced resource outside tenant")

// Store is the data access interface. All database operations go through here.
//
// Every read or write of users, projects and tasks takes the tenant it is
// scoped to and includes it in the query predicate. The *Tenant lookups are
// the only unscoped reads; they return the owner so callers can tell a
// foreign resource from a missing one.
type Store interface {
	Ping(ctx context.Context) error

	RegisterTenant(ctx context.Context, tenant *models.Tenant, admin *models.User) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	GetTenantStats(ctx context.Context, id uuid.UUID) (models.TenantStats, error)
	ListTenants(ctx context.Context, filter TenantFilter) ([]*models.TenantSummary, int, error)
	UpdateTenant(ctx context.Context, id uuid.UUID, patch models.TenantPatch) (*models.Tenant, error)

	// UserTenant returns the owner of a user; nil for platform accounts.
	UserTenant(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	// GetUser and GetUserByEmail match tenantID exactly, so a nil tenant
	// only finds platform accounts.
	GetUser(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string, tenantID *uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	ProjectTenant(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.ProjectSummary, int, error)
	UpdateProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	TaskTenant(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	// CreateTask inserts under task.ProjectID only if that project belongs
	// to task.TenantID, otherwise ErrOutOfScope.
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.TaskSummary, int, error)
	UpdateTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps p: page <= 0 becomes 1, limit <= 0 becomes defaultLimit
// and limit above MaxPageLimit becomes MaxPageLimit.
func (p Pagination) Normalize(defaultLimit int) Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type TenantFilter struct {
	Pagination
	Status models.TenantStatus
	Search string
}

type UserFilter struct {
	Pagination
	TenantID uuid.UUID
	Role     models.Role
	Search   string
}

// ProjectFilter lists projects of one tenant, or of all tenants when
// TenantID is nil.
type ProjectFilter struct {
	Pagination
	TenantID *uuid.UUID
	Status   models.ProjectStatus
	Search   string
}

type TaskFilter struct {
	Pagination
	TenantID   *uuid.UUID
	ProjectID  *uuid.UUID
	Status     models.TaskStatus
	Priority   models.TaskPriority
	AssignedTo *uuid.UUID
	Search     string
}
