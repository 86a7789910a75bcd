package store

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

const tenantColumns = `id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at`

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.SubscriptionPlan,
		&t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// RegisterTenant inserts the tenant and its first admin in one transaction.
// A subdomain collision, including one with a concurrent registration,
// returns ErrDuplicateSubdomain and leaves nothing behind.
func (s *PostgresStore) RegisterTenant(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO tenants (`+tenantColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (subdomain) DO NOTHING
			 RETURNING id`,
			tenant.ID, tenant.Name, tenant.Subdomain, tenant.Status, tenant.SubscriptionPlan,
			tenant.MaxUsers, tenant.MaxProjects, tenant.CreatedAt, tenant.UpdatedAt,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateSubdomain
		}
		if err != nil {
			return duplicateKeyErr(err)
		}

		return insertUser(ctx, tx, admin)
	})
	return wrapErr("register tenant", err)
}

func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	return t, wrapErr("get tenant", err)
}

func (s *PostgresStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain))
	return t, wrapErr("get tenant by subdomain", err)
}

func (s *PostgresStore) GetTenantStats(ctx context.Context, id uuid.UUID) (models.TenantStats, error) {
	var stats models.TenantStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users WHERE tenant_id = $1),
		   (SELECT COUNT(*) FROM projects WHERE tenant_id = $1),
		   (SELECT COUNT(*) FROM tasks WHERE tenant_id = $1)`, id,
	).Scan(&stats.TotalUsers, &stats.TotalProjects, &stats.TotalTasks)
	return stats, wrapErr("get tenant stats", err)
}

func (s *PostgresStore) ListTenants(ctx context.Context, filter TenantFilter) ([]*models.TenantSummary, int, error) {
	p := filter.Pagination.Normalize(DefaultPageLimit)

	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"t.status": string(filter.Status)})
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, sq.Or{
			sq.Expr("t.name ILIKE ?", pattern),
			sq.Expr("t.subdomain ILIKE ?", pattern),
		})
	}

	total, err := count(ctx, s.pool, psql.Select("COUNT(*)").From("tenants t").Where(where))
	if err != nil {
		return nil, 0, wrapErr("count tenants", err)
	}

	query, args, err := page(psql.Select(
		"t.id", "t.name", "t.subdomain", "t.status", "t.subscription_plan",
		"t.max_users", "t.max_projects", "t.created_at", "t.updated_at",
		"(SELECT COUNT(*) FROM users u WHERE u.tenant_id = t.id)",
		"(SELECT COUNT(*) FROM projects p WHERE p.tenant_id = t.id)",
	).From("tenants t").Where(where), p, "t.created_at DESC").ToSql()
	if err != nil {
		return nil, 0, wrapErr("build tenant list query", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list tenants", err)
	}
	defer rows.Close()

	tenants := []*models.TenantSummary{}
	for rows.Next() {
		var t models.TenantSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.SubscriptionPlan,
			&t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt,
			&t.TotalUsers, &t.TotalProjects); err != nil {
			return nil, 0, wrapErr("scan tenant", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, total, wrapErr("list tenants", rows.Err())
}

// UpdateTenant locks the row, merges patch into it and writes it back.
func (s *PostgresStore) UpdateTenant(ctx context.Context, id uuid.UUID, patch models.TenantPatch) (*models.Tenant, error) {
	var updated *models.Tenant
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		t, err := scanTenant(tx.QueryRow(ctx,
			`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		patch.Apply(t)

		updated, err = scanTenant(tx.QueryRow(ctx,
			`UPDATE tenants
			 SET name = $2, status = $3, subscription_plan = $4, max_users = $5, max_projects = $6,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+tenantColumns,
			id, t.Name, t.Status, t.SubscriptionPlan, t.MaxUsers, t.MaxProjects))
		return err
	})
	if err != nil {
		return nil, wrapErr("update tenant", err)
	}
	return updated, nil
}
