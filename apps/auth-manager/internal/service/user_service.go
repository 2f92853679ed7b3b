package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

// DefaultRoleName is assigned to new users created without explicit roles
const DefaultRoleName = "user"

// UserServiceConfig holds configuration for UserService
type UserServiceConfig struct {
	BcryptCost  int
	DefaultRole string
}

// UserService defines user provisioning operations
type UserService interface {
	// CreateUser creates a user with its credentials and roles
	CreateUser(ctx context.Context, in *dto.CreateUserInput) (*domain.User, error)
	// ListUsers returns one page of users with roles
	ListUsers(ctx context.Context, q dto.ListUsersQuery) ([]*domain.User, int64, error)
	// SetUserActive enables or disables a user account
	SetUserActive(ctx context.Context, userID string, active bool) (*domain.User, error)
	// SetCredentialActive enables or disables one login method of a user
	SetCredentialActive(ctx context.Context, userID string, typ domain.CredentialType, active bool) (*domain.Credential, error)
	// ChangePassword rehashes the user's password credential
	ChangePassword(ctx context.Context, userID, password string) error
}

// maxPasswordBytes is the longest secret bcrypt accepts
const maxPasswordBytes = 72

type userService struct {
	userRepo repository.UserRepository
	credRepo repository.CredentialRepository
	roleRepo repository.RoleRepository
	config   *UserServiceConfig
	log      *logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	roleRepo repository.RoleRepository,
	config *UserServiceConfig,
) UserService {
	if config.DefaultRole == "" {
		config.DefaultRole = DefaultRoleName
	}
	return &userService{
		userRepo: userRepo,
		credRepo: credRepo,
		roleRepo: roleRepo,
		config:   config,
		log:      logger.Get().With(zap.String("component", "user_service")),
	}
}

// CreateUser creates a user, a password credential keyed by username when a
// password is given, and a directory mapping when an account is given.
// A user that ends up without credentials is removed again.
func (s *userService) CreateUser(ctx context.Context, in *dto.CreateUserInput) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.create")
	defer span.End()
	span.SetAttributes(attribute.String("username", in.Username))

	user, err := domain.NewUser(in.Username, in.Email, in.FirstName, in.LastName, in.Phone)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, fmt.Errorf("%w: username must be 1-%d characters", domain.ErrInvalidInput, domain.MaxUsernameLength)
	}
	if !in.HasCredential() {
		err := fmt.Errorf("%w: a password or directory account is required", domain.ErrInvalidInput)
		telemetry.Fail(span, err)
		return nil, err
	}

	roleIDs, err := s.resolveRoles(ctx, in.RoleIDs)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	// Check for existing username and email
	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if existing != nil {
		span.SetStatus(codes.Error, "username taken")
		return nil, domain.ErrUsernameTaken
	}
	if user.Email != "" {
		existing, err = s.userRepo.GetByEmail(ctx, user.Email)
		if err != nil {
			telemetry.Fail(span, err)
			return nil, err
		}
		if existing != nil {
			span.SetStatus(codes.Error, "email taken")
			return nil, domain.ErrEmailTaken
		}
	}

	var hash string
	if in.Password != "" {
		if hash, err = adapter.HashPassword(in.Password, s.config.BcryptCost); err != nil {
			telemetry.Fail(span, err)
			return nil, err
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	if err := s.attach(ctx, user.ID, user.Username, hash, in.DirectoryAccount, roleIDs); err != nil {
		telemetry.Fail(span, err)
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			s.log.ErrorContext(ctx, "Failed to remove partially created user",
				zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, err
	}

	created, err := s.userRepo.GetWithRBAC(ctx, user.ID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	s.log.InfoContext(ctx, "User created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return created, nil
}

// resolveRoles validates explicit role ids, or falls back to the default role
func (s *userService) resolveRoles(ctx context.Context, requested []string) ([]string, error) {
	ids := domain.UniqueNonEmpty(requested)
	if len(ids) > 0 {
		for _, id := range ids {
			if err := validateID("role", id); err != nil {
				return nil, err
			}
		}
		return ids, nil
	}

	role, err := s.roleRepo.GetByName(ctx, s.config.DefaultRole)
	if err != nil {
		return nil, err
	}
	if role == nil {
		s.log.WarnContext(ctx, "Default role missing, user created without roles",
			zap.String("role", s.config.DefaultRole))
		return nil, nil
	}
	return []string{role.ID}, nil
}

func (s *userService) attach(ctx context.Context, userID, username, hash, directoryAccount string, roleIDs []string) error {
	var creds []*domain.Credential
	if hash != "" {
		c, err := domain.NewPasswordCredential(userID, username, hash)
		if err != nil {
			return err
		}
		creds = append(creds, c)
	}
	if directoryAccount != "" {
		c, err := domain.NewDirectoryCredential(userID, directoryAccount)
		if err != nil {
			return err
		}
		creds = append(creds, c)
	}

	for _, c := range creds {
		if err := s.credRepo.Create(ctx, c); err != nil {
			if errors.Is(err, domain.ErrCredentialExists) {
				return fmt.Errorf("%w: %s identifier %q", domain.ErrCredentialExists, c.Type, c.Identifier)
			}
			return err
		}
	}

	if len(roleIDs) == 0 {
		return nil
	}
	return s.userRepo.ReplaceRoles(ctx, userID, roleIDs)
}

// ListUsers returns one page of users with roles
func (s *userService) ListUsers(ctx context.Context, q dto.ListUsersQuery) ([]*domain.User, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.list")
	defer span.End()

	q.Normalize()
	span.SetAttributes(attribute.Int("page", q.Page), attribute.Int("limit", q.Limit))

	users, total, err := s.userRepo.List(ctx, q)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, 0, err
	}
	return users, total, nil
}

// SetUserActive flips the account switch. A disabled user can neither log in
// nor refresh; access tokens already issued run out on their own.
func (s *userService) SetUserActive(ctx context.Context, userID string, active bool) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.set_active")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.Bool("active", active))

	if err := validateID("user", userID); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	user, err := s.userRepo.GetWithRBAC(ctx, userID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if user == nil {
		telemetry.Fail(span, domain.ErrUserNotFound)
		return nil, domain.ErrUserNotFound
	}
	s.log.InfoContext(ctx, "User status changed", zap.String("user_id", userID), zap.Bool("active", active))
	return user, nil
}

// SetCredentialActive soft-enables or disables the user's credential of typ
func (s *userService) SetCredentialActive(ctx context.Context, userID string, typ domain.CredentialType, active bool) (*domain.Credential, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.set_credential_active")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("type", string(typ)),
		attribute.Bool("active", active),
	)

	cred, err := s.credentialOf(ctx, userID, typ)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if cred.IsActive == active {
		return cred, nil
	}
	if err := s.credRepo.SetActive(ctx, cred.ID, active); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	cred.IsActive = active

	s.log.InfoContext(ctx, "Credential status changed",
		zap.String("user_id", userID),
		zap.String("credential_id", cred.ID),
		zap.String("type", string(typ)),
		zap.Bool("active", active))
	return cred, nil
}

// ChangePassword replaces the hash of the user's password credential
func (s *userService) ChangePassword(ctx context.Context, userID, password string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.user.change_password")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	if password == "" || len(password) > maxPasswordBytes {
		err := fmt.Errorf("%w: password must be 1-%d bytes", domain.ErrInvalidInput, maxPasswordBytes)
		telemetry.Fail(span, err)
		return err
	}

	cred, err := s.credentialOf(ctx, userID, domain.CredentialPassword)
	if err != nil {
		telemetry.Fail(span, err)
		return err
	}

	hash, err := adapter.HashPassword(password, s.config.BcryptCost)
	if err != nil {
		telemetry.Fail(span, err)
		return err
	}
	if err := s.credRepo.UpdatePasswordHash(ctx, cred.ID, hash); err != nil {
		telemetry.Fail(span, err)
		return err
	}

	s.log.InfoContext(ctx, "Password changed", zap.String("user_id", userID), zap.String("credential_id", cred.ID))
	return nil
}

// credentialOf finds the user's credential of typ, active or not
func (s *userService) credentialOf(ctx context.Context, userID string, typ domain.CredentialType) (*domain.Credential, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	creds, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range creds {
		if c.Type == typ {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: user has no %s credential", domain.ErrCredentialNotFound, typ)
}
