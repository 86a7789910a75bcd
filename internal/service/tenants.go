package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
	"golang.org/x/sync/errgroup"
)

type TenantListInput struct {
	store.Pagination
	Status models.TenantStatus
	Search string
}

// TenantService reads and updates tenants. Tenants are never deleted.
type TenantService struct {
	store store.Store
}

func NewTenantService(st store.Store) *TenantService {
	return &TenantService{store: st}
}

// Get returns the tenant with its usage totals. The row and the totals are
// fetched concurrently.
func (s *TenantService) Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.TenantDetails, error) {
	if d := access.AuthorizeTenantRead(actor, id); !d.Allowed {
		return nil, denied(d)
	}

	var (
		tenant *models.Tenant
		stats  models.TenantStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenant, err = s.store.GetTenant(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.store.GetTenantStats(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr("get tenant", err, "Tenant")
	}

	return &models.TenantDetails{Tenant: *tenant, Stats: stats}, nil
}

func (s *TenantService) List(ctx context.Context, actor access.Claims, in TenantListInput) (*Page[*models.TenantSummary], error) {
	if d := access.AuthorizeTenantList(actor); !d.Allowed {
		return nil, denied(d)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, validation("status must be active or suspended")
	}

	p := in.Pagination.Normalize(TenantPageLimit)
	tenants, total, err := s.store.ListTenants(ctx, store.TenantFilter{
		Pagination: p,
		Status:     in.Status,
		Search:     in.Search,
	})
	if err != nil {
		return nil, storeErr("list tenants", err, "Tenant")
	}
	return newPage(tenants, total, p), nil
}

// Update applies the part of patch the actor's role allows. Fields the
// actor may not change are ignored.
func (s *TenantService) Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.TenantPatch) (*models.Tenant, error) {
	allowed, d := access.AuthorizeTenantUpdate(actor, id, patch)
	if !d.Allowed {
		return nil, denied(d)
	}
	if err := validateTenantPatch(&allowed); err != nil {
		return nil, err
	}

	if allowed.IsEmpty() {
		if patch.IsEmpty() {
			return nil, validation(msgNoFields)
		}
		tenant, err := s.store.GetTenant(ctx, id)
		if err != nil {
			return nil, storeErr("get tenant", err, "Tenant")
		}
		return tenant, nil
	}

	tenant, err := s.store.UpdateTenant(ctx, id, allowed)
	if err != nil {
		return nil, storeErr("update tenant", err, "Tenant")
	}
	return tenant, nil
}
