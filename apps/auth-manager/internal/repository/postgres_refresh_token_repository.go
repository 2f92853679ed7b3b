package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/pkg/database"
)

const refreshTokenColumns = `
	id, user_id, token, expires_at, is_revoked, COALESCE(device_info, ''), replaced_by, created_at, updated_at
`

// PostgresRefreshTokenRepository implements RefreshTokenRepository using PostgreSQL
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenRepository creates a new PostgresRefreshTokenRepository
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.IsRevoked,
		&t.DeviceInfo,
		&t.ReplacedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func insertRefreshToken(ctx context.Context, q querier, t *domain.RefreshToken) error {
	return q.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at, device_info)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Token, t.ExpiresAt, t.DeviceInfo).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Create inserts a refresh token
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return insertRefreshToken(ctx, r.pool, t)
}

// GetByToken retrieves a refresh token by its value, whatever its state
func (r *PostgresRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	t, err := scanRefreshToken(r.pool.QueryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// Rotate flips the presented token to revoked with a conditional update, so
// of two concurrent callers only one gets a row back, then inserts next and
// links it from the parent
func (r *PostgresRefreshTokenRepository) Rotate(ctx context.Context, presented string, next *domain.RefreshToken, now time.Time) (*domain.RefreshToken, error) {
	var parent *domain.RefreshToken
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanRefreshToken(tx.QueryRow(ctx, `
			UPDATE refresh_tokens
			SET is_revoked = TRUE, updated_at = NOW()
			WHERE token = $1 AND is_revoked = FALSE AND expires_at > $2
			RETURNING `+refreshTokenColumns, presented, now))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		next.UserID = p.UserID
		if err := insertRefreshToken(ctx, tx, next); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET replaced_by = $2 WHERE id = $1`, p.ID, next.ID); err != nil {
			return err
		}
		p.ReplacedBy = &next.ID
		parent = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// Revoke consumes a single active token without issuing a successor
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, token string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = NOW()
		WHERE token = $1 AND is_revoked = FALSE AND expires_at > $2
	`, token, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every still-active token of the user
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND is_revoked = FALSE
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
