package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/pkg/database"
)

// PostgresRoleRepository implements RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoleRepository creates a new PostgresRoleRepository
func NewPostgresRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

// List returns all roles ordered by name
func (r *PostgresRoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), created_at
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*domain.Role
	var ids []string
	for rows.Next() {
		role := &domain.Role{Permissions: []domain.Permission{}}
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
		ids = append(ids, role.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perms, err := loadRolePermissions(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if ps, ok := perms[role.ID]; ok {
			role.Permissions = ps
		}
	}
	return roles, nil
}

func (r *PostgresRoleRepository) getOne(ctx context.Context, where string, arg any) (*domain.Role, error) {
	role := &domain.Role{Permissions: []domain.Permission{}}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM roles WHERE `+where, arg,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	perms, err := loadRolePermissions(ctx, r.pool, []string{role.ID})
	if err != nil {
		return nil, err
	}
	if ps, ok := perms[role.ID]; ok {
		role.Permissions = ps
	}
	return role, nil
}

// GetByID retrieves a role by ID
func (r *PostgresRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName retrieves a role by name
func (r *PostgresRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, "name = $1", name)
}

// Create inserts a role and links the named permissions in one transaction
func (r *PostgresRoleRepository) Create(ctx context.Context, role *domain.Role, permissionNames []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO roles (name, description)
			VALUES ($1, NULLIF($2, ''))
			RETURNING id, created_at
		`, role.Name, role.Description).Scan(&role.ID, &role.CreatedAt)
		if err != nil {
			return uniqueViolation(err, nil, domain.ErrRoleExists)
		}
		perms, err := linkPermissions(ctx, tx, role.ID, permissionNames)
		if err != nil {
			return err
		}
		role.Permissions = perms
		return nil
	})
}

// ReplacePermissions deletes and re-inserts the role's permission links
func (r *PostgresRoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionNames []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRoleNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if _, err := linkPermissions(ctx, tx, roleID, permissionNames); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		return err
	})
}

// linkPermissions attaches permissions by name; every name must exist
func linkPermissions(ctx context.Context, q querier, roleID string, names []string) ([]domain.Permission, error) {
	if len(names) == 0 {
		return []domain.Permission{}, nil
	}

	rows, err := q.Query(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, p.id FROM permissions p WHERE p.name = ANY($2)
		ON CONFLICT DO NOTHING
		RETURNING permission_id
	`, roleID, names)
	if err != nil {
		return nil, err
	}
	linked := 0
	for rows.Next() {
		linked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if linked != len(names) {
		return nil, domain.ErrPermissionNotFound
	}

	perms, err := loadRolePermissions(ctx, q, []string{roleID})
	if err != nil {
		return nil, err
	}
	return perms[roleID], nil
}

// Upsert creates the role or refreshes its description
func (r *PostgresRoleRepository) Upsert(ctx context.Context, role *domain.Role) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, created_at
	`, role.Name, role.Description).Scan(&role.ID, &role.CreatedAt)
}
