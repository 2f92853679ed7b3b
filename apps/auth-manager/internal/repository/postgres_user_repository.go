package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/pkg/database"
)

const userColumns = `
	id, username, COALESCE(email, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(phone, ''), is_active, created_at, updated_at
`

var userConstraints = map[string]error{
	"email":    domain.ErrEmailTaken,
	"username": domain.ErrUsernameTaken,
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name, phone, is_active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return uniqueViolation(err, userConstraints, domain.ErrUsernameTaken)
	}
	if user.Roles == nil {
		user.Roles = []domain.Role{}
	}
	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user := &domain.User{Roles: []domain.Role{}}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

// GetWithRBAC loads a user with roles and permissions using two queries
func (r *PostgresUserRepository) GetWithRBAC(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}
	roles, err := loadUserRoles(ctx, r.pool, []string{user.ID})
	if err != nil {
		return nil, err
	}
	if rs, ok := roles[user.ID]; ok {
		user.Roles = rs
	}
	return user, nil
}

// List returns a page of users ordered by creation date, newest first
func (r *PostgresUserRepository) List(ctx context.Context, q dto.ListUsersQuery) ([]*domain.User, int64, error) {
	q.Normalize()

	where := "TRUE"
	args := []any{}
	if q.Search != "" {
		where = "(username ILIKE $1 OR email ILIKE $1)"
		args = append(args, "%"+q.Search+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0, q.Limit)
	ids := make([]string, 0, q.Limit)
	for rows.Next() {
		user := &domain.User{Roles: []domain.Role{}}
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.Phone,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	roles, err := loadUserRoles(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		if rs, ok := roles[u.ID]; ok {
			u.Roles = rs
		}
	}
	return users, total, nil
}

// SetActive enables or disables a user
func (r *PostgresUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ReplaceRoles swaps the user's role set inside one transaction
func (r *PostgresUserRepository) ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if len(roleIDs) > 0 {
			var found int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE id = ANY($1)`, roleIDs).Scan(&found); err != nil {
				return err
			}
			if found != len(roleIDs) {
				return domain.ErrRoleNotFound
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if len(roleIDs) > 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, unnest($2::uuid[])
			`, userID, roleIDs)
			if err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, userID)
		return err
	})
}

// Delete deletes a user
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
