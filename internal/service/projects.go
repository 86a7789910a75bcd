package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type CreateProjectInput struct {
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Status      models.ProjectStatus `json:"status"`
}

// ProjectListInput filters a project listing. TenantID narrows a super
// admin's listing; for everyone else it must be empty or their own tenant.
type ProjectListInput struct {
	store.Pagination
	TenantID *uuid.UUID
	Status   models.ProjectStatus
	Search   string
}

type ProjectService struct {
	store store.Store
	now   func() time.Time
}

func NewProjectService(st store.Store) *ProjectService {
	return &ProjectService{store: st, now: time.Now}
}

// Create adds a project to the actor's tenant with the actor as creator.
func (s *ProjectService) Create(ctx context.Context, actor access.Claims, in CreateProjectInput) (*models.Project, error) {
	tenantID, d := access.AuthorizeProjectCreate(actor)
	if !d.Allowed {
		return nil, denied(d)
	}

	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.ProjectActive
	}
	if !status.Valid() {
		return nil, validation("status must be active, archived or completed")
	}

	now := s.now().UTC()
	creator := actor.UserID
	project := &models.Project{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: optionalText(in.Description),
		Status:      status,
		CreatedBy:   &creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, storeErr("create project", err, "Tenant")
	}
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, actor access.Claims, in ProjectListInput) (*Page[*models.ProjectSummary], error) {
	scope, err := access.ScopeOf(actor)
	if err != nil {
		return nil, forbidden(access.ReasonUnauthorized)
	}
	tenantID, d := scope.ListTenant(in.TenantID)
	if !d.Allowed {
		return nil, denied(d)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, validation("status must be active, archived or completed")
	}

	p := in.Pagination.Normalize(ProjectPageLimit)
	projects, total, err := s.store.ListProjects(ctx, store.ProjectFilter{
		Pagination: p,
		TenantID:   tenantID,
		Status:     in.Status,
		Search:     in.Search,
	})
	if err != nil {
		return nil, storeErr("list projects", err, "Project")
	}
	return newPage(projects, total, p), nil
}

func (s *ProjectService) Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.Project, error) {
	owner, err := s.store.ProjectTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Project")
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, id, tenantID)
	if err != nil {
		return nil, storeErr("get project", err, "Project")
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	owner, err := s.store.ProjectTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Project")
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validation(msgNoFields)
	}
	if err := validateProjectPatch(&patch); err != nil {
		return nil, err
	}

	project, err := s.store.UpdateProject(ctx, id, tenantID, patch)
	if err != nil {
		return nil, storeErr("update project", err, "Project")
	}
	return project, nil
}

// Delete removes the project and, through the store, all of its tasks.
func (s *ProjectService) Delete(ctx context.Context, actor access.Claims, id uuid.UUID) error {
	owner, err := s.store.ProjectTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Project")
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id, tenantID); err != nil {
		return storeErr("delete project", err, "Project")
	}
	return nil
}
