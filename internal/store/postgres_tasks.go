package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

const taskColumns = `id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at`

func scanTask(row rowScanner, extra ...any) (*models.Task, error) {
	var t models.Task
	var due *time.Time
	dest := append([]any{&t.ID, &t.ProjectID, &t.TenantID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.AssignedTo, &due, &t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, notFound(err)
	}
	t.DueDate = timeToDate(due)
	return &t, nil
}

func (s *PostgresStore) TaskTenant(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT tenant_id FROM tasks WHERE id = $1`, id).Scan(&tenantID)
	if err != nil {
		return uuid.Nil, wrapErr("get task tenant", notFound(err))
	}
	return tenantID, nil
}

// CreateTask copies tenant_id from the parent project inside the insert
// itself. If the project is not in task.TenantID no row is written.
func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	var tenantID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 SELECT $1::uuid, p.id, p.tenant_id, $4::text, $5::text, $6::text, $7::text,
		        $8::uuid, $9::date, $10::timestamptz, $11::timestamptz
		 FROM projects p
		 WHERE p.id = $2 AND p.tenant_id = $3
		 RETURNING tenant_id`,
		task.ID, task.ProjectID, task.TenantID, task.Title, task.Description,
		task.Status, task.Priority, task.AssignedTo, dateToTime(task.DueDate),
		task.CreatedAt, task.UpdatedAt,
	).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOutOfScope
	}
	if err != nil {
		return wrapErr("create task", err)
	}
	task.TenantID = tenantID
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	return t, wrapErr("get task", err)
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*models.TaskSummary, int, error) {
	p := filter.Pagination.Normalize(DefaultPageLimit)

	where := sq.And{}
	if filter.TenantID != nil {
		where = append(where, sq.Expr("t.tenant_id = ?", *filter.TenantID))
	}
	if filter.ProjectID != nil {
		where = append(where, sq.Expr("t.project_id = ?", *filter.ProjectID))
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"t.status": string(filter.Status)})
	}
	if filter.Priority != "" {
		where = append(where, sq.Eq{"t.priority": string(filter.Priority)})
	}
	if filter.AssignedTo != nil {
		where = append(where, sq.Expr("t.assigned_to = ?", *filter.AssignedTo))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, sq.Or{
			sq.Expr("t.title ILIKE ?", pattern),
			sq.Expr("t.description ILIKE ?", pattern),
		})
	}

	total, err := count(ctx, s.pool, psql.Select("COUNT(*)").From("tasks t").Where(where))
	if err != nil {
		return nil, 0, wrapErr("count tasks", err)
	}

	query, args, err := page(psql.Select(
		"t.id", "t.project_id", "t.tenant_id", "t.title", "t.description", "t.status",
		"t.priority", "t.assigned_to", "t.due_date", "t.created_at", "t.updated_at",
		"p.name", "u.full_name",
	).From("tasks t").
		Join("projects p ON p.id = t.project_id").
		LeftJoin("users u ON u.id = t.assigned_to").
		Where(where), p, "t.created_at DESC").ToSql()
	if err != nil {
		return nil, 0, wrapErr("build task list query", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list tasks", err)
	}
	defer rows.Close()

	tasks := []*models.TaskSummary{}
	for rows.Next() {
		var projectName string
		var assigneeName *string
		t, err := scanTask(rows, &projectName, &assigneeName)
		if err != nil {
			return nil, 0, wrapErr("scan task", err)
		}
		tasks = append(tasks, &models.TaskSummary{Task: *t, ProjectName: projectName, AssigneeName: assigneeName})
	}
	return tasks, total, wrapErr("list tasks", rows.Err())
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	var updated *models.Task
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		t, err := scanTask(tx.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks
			 WHERE id = $1 AND tenant_id = $2
			 FOR UPDATE`, id, tenantID))
		if err != nil {
			return err
		}
		patch.Apply(t)

		updated, err = scanTask(tx.QueryRow(ctx,
			`UPDATE tasks
			 SET title = $3, description = $4, status = $5, priority = $6,
			     assigned_to = $7, due_date = $8, updated_at = NOW()
			 WHERE id = $1 AND tenant_id = $2
			 RETURNING `+taskColumns,
			id, tenantID, t.Title, t.Description, t.Status, t.Priority,
			t.AssignedTo, dateToTime(t.DueDate)))
		return err
	})
	if err != nil {
		return nil, wrapErr("update task", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return wrapErr("delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
