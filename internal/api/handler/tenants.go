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

type Tenants interface {
	Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.TenantDetails, error)
	List(ctx context.Context, actor access.Claims, in service.TenantListInput) (*service.Page[*models.TenantSummary], error)
	Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.TenantPatch) (*models.Tenant, error)
}

// NewListTenantsHandler returns an http.HandlerFunc for GET /api/tenants.
func NewListTenantsHandler(svc Tenants, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		page, err := svc.List(r.Context(), claims, service.TenantListInput{
			Pagination: pagination(r),
			Status:     models.TenantStatus(filter(r, "status")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		})
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		writePage(w, page)
	}
}

// NewGetTenantHandler returns an http.HandlerFunc for GET /api/tenants/{tenantID}.
func NewGetTenantHandler(svc Tenants, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "tenantID")
		if !ok {
			return
		}
		tenant, err := svc.Get(r.Context(), claims, id)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, tenant)
	}
}

// NewUpdateTenantHandler returns an http.HandlerFunc for PUT /api/tenants/{tenantID}.
func NewUpdateTenantHandler(svc Tenants, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "tenantID")
		if !ok {
			return
		}
		var patch models.TenantPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		tenant, err := svc.Update(r.Context(), claims, id, patch)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, tenant)
	}
}
