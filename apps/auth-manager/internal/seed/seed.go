// Package seed provisions the baseline permission catalog, the admin and
// user roles and the bootstrap admin account. Every step is an upsert, so
// running it again converges instead of failing.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
)

const (
	AdminRole = "admin"
	UserRole  = "user"
)

var (
	Resources = []string{"employees", "departments", "users", "roles"}
	Actions   = []string{"create", "read", "update", "delete", "manage"}
)

// AdminAccount describes the bootstrap administrator
type AdminAccount struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// DefaultAdmin is the account created on a fresh database
func DefaultAdmin() AdminAccount {
	return AdminAccount{
		Username:  "admin",
		Password:  "12345!",
		Email:     "admin@system.local",
		FirstName: "Admin",
		LastName:  "System",
	}
}

// Catalog returns every resource.action permission in a stable order
func Catalog() []*domain.Permission {
	perms := make([]*domain.Permission, 0, len(Resources)*len(Actions))
	for _, resource := range Resources {
		for _, action := range Actions {
			perms = append(perms, &domain.Permission{
				Name:        resource + "." + action,
				Resource:    resource,
				Action:      action,
				Description: fmt.Sprintf("Can %s %s", action, resource),
			})
		}
	}
	return perms
}

// RoleGrants maps each seeded role to its permission names: admin gets the
// whole catalog, user only the read permissions
func RoleGrants(catalog []*domain.Permission) map[string][]string {
	grants := map[string][]string{AdminRole: {}, UserRole: {}}
	for _, p := range catalog {
		grants[AdminRole] = append(grants[AdminRole], p.Name)
		if p.Action == "read" {
			grants[UserRole] = append(grants[UserRole], p.Name)
		}
	}
	return grants
}

// Result summarises a seeding run
type Result struct {
	Permissions  int
	Roles        int
	AdminCreated bool
	AdminID      string
}

// Seeder writes the baseline data through the repositories
type Seeder struct {
	users       repository.UserRepository
	credentials repository.CredentialRepository
	roles       repository.RoleRepository
	permissions repository.PermissionRepository
	bcryptCost  int
	log         *logger.Logger
}

// NewSeeder creates a Seeder
func NewSeeder(
	users repository.UserRepository,
	credentials repository.CredentialRepository,
	roles repository.RoleRepository,
	permissions repository.PermissionRepository,
	bcryptCost int,
) *Seeder {
	return &Seeder{
		users:       users,
		credentials: credentials,
		roles:       roles,
		permissions: permissions,
		bcryptCost:  bcryptCost,
		log:         logger.Get().With(zap.String("component", "seed")),
	}
}

// Run seeds permissions, roles and the admin account
func (s *Seeder) Run(ctx context.Context, admin AdminAccount) (*Result, error) {
	result := &Result{}

	catalog := Catalog()
	for _, perm := range catalog {
		if err := s.permissions.Upsert(ctx, perm); err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", perm.Name, err)
		}
	}
	result.Permissions = len(catalog)
	s.log.Info("Permissions seeded", zap.Int("count", result.Permissions))

	roleIDs := make(map[string]string)
	descriptions := map[string]string{
		AdminRole: "Administrator with full access",
		UserRole:  "Standard user with read access",
	}
	for name, perms := range RoleGrants(catalog) {
		role := &domain.Role{Name: name, Description: descriptions[name]}
		if err := s.roles.Upsert(ctx, role); err != nil {
			return nil, fmt.Errorf("seed role %s: %w", name, err)
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, perms); err != nil {
			return nil, fmt.Errorf("grant role %s: %w", name, err)
		}
		roleIDs[name] = role.ID
		s.log.Info("Role seeded", zap.String("role", name), zap.Int("permissions", len(perms)))
	}
	result.Roles = len(roleIDs)

	userID, created, err := s.ensureAdmin(ctx, admin, roleIDs[AdminRole])
	if err != nil {
		return nil, err
	}
	result.AdminID = userID
	result.AdminCreated = created
	return result, nil
}

// ensureAdmin creates the admin user and password credential when missing and
// always resets its role set to exactly the admin role
func (s *Seeder) ensureAdmin(ctx context.Context, admin AdminAccount, adminRoleID string) (string, bool, error) {
	user, err := s.users.GetByUsername(ctx, admin.Username)
	if err != nil {
		return "", false, fmt.Errorf("lookup admin: %w", err)
	}

	created := false
	if user == nil {
		user, err = domain.NewUser(admin.Username, admin.Email, admin.FirstName, admin.LastName, "")
		if err != nil {
			return "", false, fmt.Errorf("admin account: %w", err)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", false, fmt.Errorf("create admin: %w", err)
		}
		created = true
		s.log.Info("Admin user created", zap.String("user_id", user.ID))
	}

	if err := s.ensurePasswordCredential(ctx, user.ID, admin); err != nil {
		return "", false, err
	}
	if err := s.users.ReplaceRoles(ctx, user.ID, []string{adminRoleID}); err != nil {
		return "", false, fmt.Errorf("assign admin role: %w", err)
	}
	return user.ID, created, nil
}

func (s *Seeder) ensurePasswordCredential(ctx context.Context, userID string, admin AdminAccount) error {
	creds, err := s.credentials.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup admin credentials: %w", err)
	}
	for _, c := range creds {
		if c.Type == domain.CredentialPassword {
			return nil
		}
	}

	hash, err := adapter.HashPassword(admin.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	cred, err := domain.NewPasswordCredential(userID, admin.Username, hash)
	if err != nil {
		return err
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		return fmt.Errorf("create admin credential: %w", err)
	}
	s.log.Info("Admin password credential created", zap.String("identifier", admin.Username))
	return nil
}
