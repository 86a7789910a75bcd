package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

const userColumns = `id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.FullName,
		u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isDuplicateKeyError(err) {
		return duplicateKeyErr(err)
	}
	return err
}

func (s *PostgresStore) UserTenant(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	var tenantID *uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT tenant_id FROM users WHERE id = $1`, id).Scan(&tenantID)
	if err != nil {
		return nil, wrapErr("get user tenant", notFound(err))
	}
	return tenantID, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id = $1 AND tenant_id IS NOT DISTINCT FROM $2`, id, tenantID))
	return u, wrapErr("get user", err)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string, tenantID *uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = $1 AND tenant_id IS NOT DISTINCT FROM $2`, email, tenantID))
	return u, wrapErr("get user by email", err)
}

// CreateUser inserts a user. For tenant users the tenant row is locked first
// so concurrent inserts cannot overshoot max_users.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if user.TenantID != nil {
			var maxUsers, current int
			err := tx.QueryRow(ctx,
				`SELECT max_users FROM tenants WHERE id = $1 FOR UPDATE`, *user.TenantID,
			).Scan(&maxUsers)
			if err != nil {
				return notFound(err)
			}
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, *user.TenantID,
			).Scan(&current); err != nil {
				return err
			}
			if current >= maxUsers {
				return ErrLimitReached
			}
		}
		return insertUser(ctx, tx, user)
	})
	return wrapErr("create user", err)
}

func (s *PostgresStore) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, int, error) {
	p := filter.Pagination.Normalize(DefaultPageLimit)

	where := sq.And{sq.Expr("tenant_id = ?", filter.TenantID)}
	if filter.Role != "" {
		where = append(where, sq.Eq{"role": string(filter.Role)})
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, sq.Or{
			sq.Expr("email ILIKE ?", pattern),
			sq.Expr("full_name ILIKE ?", pattern),
		})
	}

	total, err := count(ctx, s.pool, psql.Select("COUNT(*)").From("users").Where(where))
	if err != nil {
		return nil, 0, wrapErr("count users", err)
	}

	query, args, err := page(psql.Select(userColumns).From("users").Where(where), p, "created_at DESC").ToSql()
	if err != nil {
		return nil, 0, wrapErr("build user list query", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list users", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, wrapErr("scan user", err)
		}
		users = append(users, u)
	}
	return users, total, wrapErr("list users", rows.Err())
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID, patch models.UserPatch) (*models.User, error) {
	var updated *models.User
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users
			 WHERE id = $1 AND tenant_id IS NOT DISTINCT FROM $2
			 FOR UPDATE`, id, tenantID))
		if err != nil {
			return err
		}
		patch.Apply(u)

		updated, err = scanUser(tx.QueryRow(ctx,
			`UPDATE users
			 SET full_name = $2, role = $3, is_active = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, u.FullName, u.Role, u.IsActive))
		return err
	})
	if err != nil {
		return nil, wrapErr("update user", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return wrapErr("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
