package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

const projectColumns = `id, tenant_id, name, description, status, created_by, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PostgresStore) ProjectTenant(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT tenant_id FROM projects WHERE id = $1`, id).Scan(&tenantID)
	if err != nil {
		return uuid.Nil, wrapErr("get project tenant", notFound(err))
	}
	return tenantID, nil
}

// CreateProject inserts a project, holding the tenant row lock while it
// checks max_projects.
func (s *PostgresStore) CreateProject(ctx context.Context, project *models.Project) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var maxProjects, current int
		err := tx.QueryRow(ctx,
			`SELECT max_projects FROM tenants WHERE id = $1 FOR UPDATE`, project.TenantID,
		).Scan(&maxProjects)
		if err != nil {
			return notFound(err)
		}
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM projects WHERE tenant_id = $1`, project.TenantID,
		).Scan(&current); err != nil {
			return err
		}
		if current >= maxProjects {
			return ErrLimitReached
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO projects (`+projectColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			project.ID, project.TenantID, project.Name, project.Description, project.Status,
			project.CreatedBy, project.CreatedAt, project.UpdatedAt)
		return err
	})
	return wrapErr("create project", err)
}

func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	return p, wrapErr("get project", err)
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.ProjectSummary, int, error) {
	p := filter.Pagination.Normalize(DefaultPageLimit)

	where := sq.And{}
	if filter.TenantID != nil {
		where = append(where, sq.Expr("p.tenant_id = ?", *filter.TenantID))
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"p.status": string(filter.Status)})
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, sq.Or{
			sq.Expr("p.name ILIKE ?", pattern),
			sq.Expr("p.description ILIKE ?", pattern),
		})
	}

	total, err := count(ctx, s.pool, psql.Select("COUNT(*)").From("projects p").Where(where))
	if err != nil {
		return nil, 0, wrapErr("count projects", err)
	}

	query, args, err := page(psql.Select(
		"p.id", "p.tenant_id", "p.name", "p.description", "p.status",
		"p.created_by", "p.created_at", "p.updated_at",
		"u.full_name",
		"(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id)",
	).From("projects p").
		LeftJoin("users u ON u.id = p.created_by").
		Where(where), p, "p.created_at DESC").ToSql()
	if err != nil {
		return nil, 0, wrapErr("build project list query", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list projects", err)
	}
	defer rows.Close()

	projects := []*models.ProjectSummary{}
	for rows.Next() {
		var ps models.ProjectSummary
		if err := rows.Scan(&ps.ID, &ps.TenantID, &ps.Name, &ps.Description, &ps.Status,
			&ps.CreatedBy, &ps.CreatedAt, &ps.UpdatedAt,
			&ps.CreatedByName, &ps.TaskCount); err != nil {
			return nil, 0, wrapErr("scan project", err)
		}
		projects = append(projects, &ps)
	}
	return projects, total, wrapErr("list projects", rows.Err())
}

func (s *PostgresStore) UpdateProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	var updated *models.Project
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := scanProject(tx.QueryRow(ctx,
			`SELECT `+projectColumns+` FROM projects
			 WHERE id = $1 AND tenant_id = $2
			 FOR UPDATE`, id, tenantID))
		if err != nil {
			return err
		}
		patch.Apply(p)

		updated, err = scanProject(tx.QueryRow(ctx,
			`UPDATE projects
			 SET name = $3, description = $4, status = $5, updated_at = NOW()
			 WHERE id = $1 AND tenant_id = $2
			 RETURNING `+projectColumns,
			id, tenantID, p.Name, p.Description, p.Status))
		return err
	})
	if err != nil {
		return nil, wrapErr("update project", err)
	}
	return updated, nil
}

// DeleteProject removes the project; its tasks go with it through the
// foreign key cascade.
func (s *PostgresStore) DeleteProject(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return wrapErr("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
