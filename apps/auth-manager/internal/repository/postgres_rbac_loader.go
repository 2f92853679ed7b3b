package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/pkg/database"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// loadUserRoles fetches roles and permissions for many users in one query
func loadUserRoles(ctx context.Context, q querier, userIDs []string) (map[string][]domain.Role, error) {
	result := make(map[string][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT ur.user_id, r.id, r.name, COALESCE(r.description, ''), r.created_at,
		       p.id, p.name, p.resource, p.action, p.description, p.created_at
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ur.user_id, r.name, p.name
	`
	rows, err := q.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var role domain.Role
		var perm nullablePermission
		if err := rows.Scan(
			&userID,
			&role.ID,
			&role.Name,
			&role.Description,
			&role.CreatedAt,
			&perm.ID,
			&perm.Name,
			&perm.Resource,
			&perm.Action,
			&perm.Description,
			&perm.CreatedAt,
		); err != nil {
			return nil, err
		}

		roles := result[userID]
		if n := len(roles); n == 0 || roles[n-1].ID != role.ID {
			role.Permissions = []domain.Permission{}
			roles = append(roles, role)
		}
		if p, ok := perm.toDomain(); ok {
			last := &roles[len(roles)-1]
			last.Permissions = append(last.Permissions, p)
		}
		result[userID] = roles
	}
	return result, rows.Err()
}

// loadRolePermissions fetches permissions for many roles in one query
func loadRolePermissions(ctx context.Context, q querier, roleIDs []string) (map[string][]domain.Permission, error) {
	result := make(map[string][]domain.Permission, len(roleIDs))
	if len(roleIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT rp.role_id, p.id, p.name, p.resource, p.action, COALESCE(p.description, ''), p.created_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name
	`
	rows, err := q.Query(ctx, query, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roleID string
		var p domain.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[roleID] = append(result[roleID], p)
	}
	return result, rows.Err()
}

// nullablePermission holds the LEFT JOIN side of a role row
type nullablePermission struct {
	ID          *string
	Name        *string
	Resource    *string
	Action      *string
	Description *string
	CreatedAt   *time.Time
}

func (n nullablePermission) toDomain() (domain.Permission, bool) {
	if n.ID == nil {
		return domain.Permission{}, false
	}
	p := domain.Permission{
		ID:          *n.ID,
		Name:        deref(n.Name),
		Resource:    deref(n.Resource),
		Action:      deref(n.Action),
		Description: deref(n.Description),
	}
	if n.CreatedAt != nil {
		p.CreatedAt = *n.CreatedAt
	}
	return p, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// uniqueViolation maps a unique constraint failure to a domain error picked
// by constraint name
func uniqueViolation(err error, byConstraint map[string]error, fallback error) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for fragment, mapped := range byConstraint {
			if strings.Contains(pgErr.ConstraintName, fragment) {
				return mapped
			}
		}
	}
	return fallback
}
