package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type Projects interface {
	Create(ctx context.Context, actor access.Claims, in service.CreateProjectInput) (*models.Project, error)
	List(ctx context.Context, actor access.Claims, in service.ProjectListInput) (*service.Page[*models.ProjectSummary], error)
	Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, actor access.Claims, id uuid.UUID) error
}

// NewCreateProjectHandler returns an http.HandlerFunc for POST /api/projects.
func NewCreateProjectHandler(svc Projects, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		var in service.CreateProjectInput
		if !decodeJSON(w, r, &in) {
			return
		}
		project, err := svc.Create(r.Context(), claims, in)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Created(w, project, "Project created successfully")
	}
}

// NewListProjectsHandler returns an http.HandlerFunc for GET /api/projects.
// Super admins may narrow the listing with ?tenantId=.
func NewListProjectsHandler(svc Projects, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		tenantID, ok := queryUUID(w, r, "tenantId")
		if !ok {
			return
		}
		page, err := svc.List(r.Context(), claims, service.ProjectListInput{
			Pagination: pagination(r),
			TenantID:   tenantID,
			Status:     models.ProjectStatus(filter(r, "status")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		})
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		writePage(w, page)
	}
}

// NewGetProjectHandler returns an http.HandlerFunc for GET /api/projects/{projectID}.
func NewGetProjectHandler(svc Projects, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "projectID")
		if !ok {
			return
		}
		project, err := svc.Get(r.Context(), claims, id)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, project)
	}
}

// NewUpdateProjectHandler returns an http.HandlerFunc for PUT /api/projects/{projectID}.
func NewUpdateProjectHandler(svc Projects, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "projectID")
		if !ok {
			return
		}
		var patch models.ProjectPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		project, err := svc.Update(r.Context(), claims, id, patch)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, project)
	}
}

// NewDeleteProjectHandler returns an http.HandlerFunc for DELETE /api/projects/{projectID}.
func NewDeleteProjectHandler(svc Projects, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "projectID")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), claims, id); err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Message(w, "Project deleted successfully")
	}
}
