package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
)

// PostgresCredentialRepository implements CredentialRepository using PostgreSQL
type PostgresCredentialRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCredentialRepository creates a new PostgresCredentialRepository
func NewPostgresCredentialRepository(pool *pgxpool.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{pool: pool}
}

// Create inserts a credential after checking the hash rule
func (r *PostgresCredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO credentials (user_id, type, identifier, password, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		cred.UserID,
		string(cred.Type),
		cred.Identifier,
		cred.PasswordHash,
		cred.IsActive,
	).Scan(&cred.ID, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return uniqueViolation(err, nil, domain.ErrCredentialExists)
	}
	return nil
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	cred := &domain.Credential{}
	var typ string
	err := row.Scan(
		&cred.ID,
		&cred.UserID,
		&typ,
		&cred.Identifier,
		&cred.PasswordHash,
		&cred.IsActive,
		&cred.LastLoginAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cred.Type = domain.CredentialType(typ)
	return cred, nil
}

// FindActiveByIdentifier loads the active credential including its hash
func (r *PostgresCredentialRepository) FindActiveByIdentifier(ctx context.Context, typ domain.CredentialType, identifier string) (*domain.Credential, error) {
	query := `
		SELECT id, user_id, type, identifier, password, is_active, last_login_at, created_at, updated_at
		FROM credentials
		WHERE type = $1 AND identifier = $2 AND is_active = TRUE
	`
	cred, err := scanCredential(r.pool.QueryRow(ctx, query, string(typ), identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cred, nil
}

// FindByUserID lists credentials of a user, hashes included
func (r *PostgresCredentialRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Credential, error) {
	query := `
		SELECT id, user_id, type, identifier, password, is_active, last_login_at, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// UpdateLastLogin stamps the credential with the login time
func (r *PostgresCredentialRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE credentials SET last_login_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

// UpdatePasswordHash replaces the hash of a password credential
func (r *PostgresCredentialRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return domain.ErrInvalidInput
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE credentials SET password = $2, updated_at = NOW()
		WHERE id = $1 AND type = 'password'
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

// SetActive soft-enables or disables a credential. Re-enabling fails with
// ErrCredentialExists when another active credential holds the identifier.
func (r *PostgresCredentialRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE credentials SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return uniqueViolation(err, nil, domain.ErrCredentialExists)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}
