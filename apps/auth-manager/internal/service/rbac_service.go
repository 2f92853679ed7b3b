package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

// RBACService defines role and permission administration. Set operations
// replace the whole set; they never merge.
type RBACService interface {
	// GetUserPermissions loads a user with roles and permissions
	GetUserPermissions(ctx context.Context, userID string) (*domain.User, error)
	// AssignRoles replaces the role set of a user
	AssignRoles(ctx context.Context, userID string, roleIDs []string) (*domain.User, error)
	// SetRolePermissions replaces the permission set of a role
	SetRolePermissions(ctx context.Context, roleID string, permissionNames []string) (*domain.Role, error)
	// ListRoles returns all roles with permissions
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	// CreateRole creates a role with the named permissions
	CreateRole(ctx context.Context, name, description string, permissionNames []string) (*domain.Role, error)
	// ListPermissions returns all permissions
	ListPermissions(ctx context.Context) ([]*domain.Permission, error)
	// CreatePermission creates a permission
	CreatePermission(ctx context.Context, in *dto.PermissionInput) (*domain.Permission, error)
	// UpdatePermission patches a permission
	UpdatePermission(ctx context.Context, id string, in *dto.PermissionInput) (*domain.Permission, error)
	// DeletePermission removes a permission from every role and deletes it
	DeletePermission(ctx context.Context, id string) error
}

type rbacService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
}

// NewRBACService creates a new RBACService
func NewRBACService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
) RBACService {
	return &rbacService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		permRepo: permRepo,
	}
}

func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid %s id %q", domain.ErrInvalidInput, kind, id)
	}
	return nil
}

func (s *rbacService) GetUserPermissions(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.get_user_permissions")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	if err := validateID("user", userID); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	user, err := s.userRepo.GetWithRBAC(ctx, userID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *rbacService) AssignRoles(ctx context.Context, userID string, roleIDs []string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.assign_roles")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	if err := validateID("user", userID); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	ids := domain.UniqueNonEmpty(roleIDs)
	for _, id := range ids {
		if err := validateID("role", id); err != nil {
			telemetry.Fail(span, err)
			return nil, err
		}
	}

	if err := s.userRepo.ReplaceRoles(ctx, userID, ids); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("roles", len(ids)))
	return s.GetUserPermissions(ctx, userID)
}

func (s *rbacService) SetRolePermissions(ctx context.Context, roleID string, permissionNames []string) (*domain.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.set_role_permissions")
	defer span.End()
	span.SetAttributes(attribute.String("role_id", roleID))

	if err := validateID("role", roleID); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	names := domain.UniqueNonEmpty(permissionNames)
	if err := s.roleRepo.ReplacePermissions(ctx, roleID, names); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrRoleNotFound
	}
	return role, nil
}

func (s *rbacService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.list_roles")
	defer span.End()

	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	return roles, nil
}

func (s *rbacService) CreateRole(ctx context.Context, name, description string, permissionNames []string) (*domain.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.create_role")
	defer span.End()

	name = strings.TrimSpace(name)
	span.SetAttributes(attribute.String("role", name))
	if name == "" {
		err := fmt.Errorf("%w: role name is required", domain.ErrInvalidInput)
		telemetry.Fail(span, err)
		return nil, err
	}

	existing, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if existing != nil {
		span.SetStatus(codes.Error, "role exists")
		return nil, domain.ErrRoleExists
	}

	role := &domain.Role{Name: name, Description: strings.TrimSpace(description)}
	if err := s.roleRepo.Create(ctx, role, domain.UniqueNonEmpty(permissionNames)); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	// Reload so the reply carries the linked permissions
	created, err := s.roleRepo.GetByID(ctx, role.ID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if created == nil {
		return role, nil
	}
	return created, nil
}

func (s *rbacService) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.list_permissions")
	defer span.End()

	perms, err := s.permRepo.List(ctx)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	return perms, nil
}

func (s *rbacService) CreatePermission(ctx context.Context, in *dto.PermissionInput) (*domain.Permission, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.create_permission")
	defer span.End()
	span.SetAttributes(attribute.String("permission", in.Name))

	perm, err := domain.NewPermission(in.Name, in.Resource, in.Action, in.Description)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	existing, err := s.permRepo.GetByName(ctx, perm.Name)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if existing != nil {
		span.SetStatus(codes.Error, "permission exists")
		return nil, domain.ErrPermissionExists
	}

	if err := s.permRepo.Create(ctx, perm); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	return perm, nil
}

func (s *rbacService) UpdatePermission(ctx context.Context, id string, in *dto.PermissionInput) (*domain.Permission, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.update_permission")
	defer span.End()
	span.SetAttributes(attribute.String("permission_id", id))

	if err := validateID("permission", id); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if perm == nil {
		span.SetStatus(codes.Error, "permission not found")
		return nil, domain.ErrPermissionNotFound
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != perm.Name {
		taken, err := s.permRepo.GetByName(ctx, name)
		if err != nil {
			telemetry.Fail(span, err)
			return nil, err
		}
		if taken != nil {
			span.SetStatus(codes.Error, "permission exists")
			return nil, domain.ErrPermissionExists
		}
		perm.Name = name
	}
	if in.Resource != "" {
		perm.Resource = in.Resource
	}
	if in.Action != "" {
		perm.Action = in.Action
	}
	if in.Description != "" {
		perm.Description = in.Description
	}

	if err := s.permRepo.Update(ctx, perm); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	return perm, nil
}

func (s *rbacService) DeletePermission(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.rbac.delete_permission")
	defer span.End()
	span.SetAttributes(attribute.String("permission_id", id))

	if err := validateID("permission", id); err != nil {
		telemetry.Fail(span, err)
		return err
	}
	if err := s.permRepo.Delete(ctx, id); err != nil {
		telemetry.Fail(span, err)
		return err
	}
	return nil
}
