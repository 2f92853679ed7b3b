package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
)

const permissionColumns = `id, name, resource, action, COALESCE(description, ''), created_at`

// PostgresPermissionRepository implements PermissionRepository using PostgreSQL
type PostgresPermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPermissionRepository creates a new PostgresPermissionRepository
func NewPostgresPermissionRepository(pool *pgxpool.Pool) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{pool: pool}
}

func scanPermission(row pgx.Row) (*domain.Permission, error) {
	p := &domain.Permission{}
	if err := row.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all permissions ordered by name
func (r *PostgresPermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []*domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *PostgresPermissionRepository) getOne(ctx context.Context, where string, arg any) (*domain.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a permission by ID
func (r *PostgresPermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName retrieves a permission by name
func (r *PostgresPermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	return r.getOne(ctx, "name = $1", name)
}

// Create inserts a permission
func (r *PostgresPermissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, resource, action, description)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at
	`, perm.Name, perm.Resource, perm.Action, perm.Description).Scan(&perm.ID, &perm.CreatedAt)
	if err != nil {
		return uniqueViolation(err, nil, domain.ErrPermissionExists)
	}
	return nil
}

// Update writes name, resource, action and description
func (r *PostgresPermissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions
		SET name = $2, resource = $3, action = $4, description = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1
	`, perm.ID, perm.Name, perm.Resource, perm.Action, perm.Description)
	if err != nil {
		return uniqueViolation(err, nil, domain.ErrPermissionExists)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPermissionNotFound
	}
	return nil
}

// Delete removes a permission; role links cascade
func (r *PostgresPermissionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPermissionNotFound
	}
	return nil
}

// Upsert creates the permission or refreshes its metadata
func (r *PostgresPermissionRepository) Upsert(ctx context.Context, perm *domain.Permission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, resource, action, description)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (name) DO UPDATE
		SET resource = EXCLUDED.resource, action = EXCLUDED.action,
		    description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, created_at
	`, perm.Name, perm.Resource, perm.Action, perm.Description).Scan(&perm.ID, &perm.CreatedAt)
}
