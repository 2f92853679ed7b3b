package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
)

// UserRepository defines the interface for user data access.
// Lookups return nil, nil when the user does not exist.
type UserRepository interface {
	// Create inserts a user and fills its ID and timestamps
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user without roles
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByUsername retrieves a user without roles
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByEmail retrieves a user without roles
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetWithRBAC loads the user with roles and their permissions
	GetWithRBAC(ctx context.Context, id string) (*domain.User, error)
	// List returns one page of users with roles, and the total match count
	List(ctx context.Context, q dto.ListUsersQuery) ([]*domain.User, int64, error)
	// SetActive enables or disables a user
	SetActive(ctx context.Context, id string, active bool) error
	// ReplaceRoles makes roleIDs the exact role set of the user
	ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error
	// Delete removes a user, cascading credentials and refresh tokens
	Delete(ctx context.Context, id string) error
}

// CredentialRepository defines the interface for credential data access
type CredentialRepository interface {
	// Create inserts a credential
	Create(ctx context.Context, cred *domain.Credential) error
	// FindActiveByIdentifier returns the active credential of the given type, hash included
	FindActiveByIdentifier(ctx context.Context, typ domain.CredentialType, identifier string) (*domain.Credential, error)
	// FindByUserID lists all credentials of a user
	FindByUserID(ctx context.Context, userID string) ([]*domain.Credential, error)
	// UpdateLastLogin records a successful authentication
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// UpdatePasswordHash replaces the stored hash of a password credential
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// SetActive soft-enables or disables a credential; ErrCredentialNotFound
	// when id matches nothing
	SetActive(ctx context.Context, id string, active bool) error
}

// RoleRepository defines the interface for role data access
type RoleRepository interface {
	// List returns all roles with permissions
	List(ctx context.Context) ([]*domain.Role, error)
	// GetByID retrieves a role with permissions
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	// GetByName retrieves a role with permissions
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// Create inserts a role and attaches the named permissions
	Create(ctx context.Context, role *domain.Role, permissionNames []string) error
	// ReplacePermissions makes permissionNames the exact permission set of the role
	ReplacePermissions(ctx context.Context, roleID string, permissionNames []string) error
	// Upsert creates the role or updates its description, keyed by name
	Upsert(ctx context.Context, role *domain.Role) error
}

// PermissionRepository defines the interface for permission data access
type PermissionRepository interface {
	// List returns all permissions ordered by name
	List(ctx context.Context) ([]*domain.Permission, error)
	// GetByID retrieves a permission
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	// GetByName retrieves a permission
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	// Create inserts a permission
	Create(ctx context.Context, perm *domain.Permission) error
	// Update writes all mutable fields of perm
	Update(ctx context.Context, perm *domain.Permission) error
	// Delete removes a permission and its role links
	Delete(ctx context.Context, id string) error
	// Upsert creates the permission or updates its metadata, keyed by name
	Upsert(ctx context.Context, perm *domain.Permission) error
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// Rows are never deleted.
type RefreshTokenRepository interface {
	// Create inserts a token and fills its ID and timestamps
	Create(ctx context.Context, token *domain.RefreshToken) error
	// GetByToken finds a token by exact value
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Rotate revokes the presented token only if it is still active at now and
	// inserts next for the same user in the same transaction. It returns the
	// revoked parent, or nil when no active row matched.
	Rotate(ctx context.Context, presented string, next *domain.RefreshToken, now time.Time) (*domain.RefreshToken, error)
	// Revoke revokes the token only if it is still active at now, issuing no
	// successor. It reports whether a row changed.
	Revoke(ctx context.Context, token string, now time.Time) (bool, error)
	// RevokeAllForUser revokes every token of the user and returns how many changed
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// BlacklistRepository stores revoked access tokens until they expire
type BlacklistRepository interface {
	// Add marks token as revoked for ttl
	Add(ctx context.Context, token string, ttl time.Duration) error
	// Contains reports whether token is revoked
	Contains(ctx context.Context, token string) (bool, error)
}
