package di

import (
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/handler"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/service"
	"github.com/prohmpiriya/hr-identity/pkg/database"
	"github.com/prohmpiriya/hr-identity/pkg/redis"
)

const serviceName = "auth-manager"

// Container holds all dependencies for the auth manager
type Container struct {
	// Infrastructure
	DB     *database.PostgresDB
	Redis  *redis.Client
	Events event.Publisher

	// Repositories
	UserRepo         repository.UserRepository
	CredentialRepo   repository.CredentialRepository
	RoleRepo         repository.RoleRepository
	PermissionRepo   repository.PermissionRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Blacklist        repository.BlacklistRepository

	// Services
	TokenService service.TokenService
	AuthService  service.AuthService
	RBACService  service.RBACService
	UserService  service.UserService

	// Handlers
	GRPCHandler   *handler.GRPCHandler
	HealthHandler *handler.HealthHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB     *database.PostgresDB
	Redis  *redis.Client
	Events event.Publisher

	// DirectoryDialer enables directory logins when set
	DirectoryDialer adapter.DirectoryDialer
	Directory       adapter.DirectoryConfig

	TokenConfig *service.TokenServiceConfig
	UserConfig  *service.UserServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:     cfg.DB,
		Redis:  cfg.Redis,
		Events: cfg.Events,
	}
	if c.Events == nil {
		c.Events = event.NoopPublisher{}
	}

	// Initialize repositories
	pool := cfg.DB.Pool()
	c.UserRepo = repository.NewPostgresUserRepository(pool)
	c.CredentialRepo = repository.NewPostgresCredentialRepository(pool)
	c.RoleRepo = repository.NewPostgresRoleRepository(pool)
	c.PermissionRepo = repository.NewPostgresPermissionRepository(pool)
	c.RefreshTokenRepo = repository.NewPostgresRefreshTokenRepository(pool)
	c.Blacklist = repository.NewRedisBlacklistRepository(cfg.Redis)

	// Credential adapters
	adapters := &service.AuthServiceConfig{
		Password: adapter.NewPasswordAdapter(c.CredentialRepo, c.UserRepo, cfg.UserConfig.BcryptCost),
	}
	if cfg.DirectoryDialer != nil {
		adapters.Directory = adapter.NewDirectoryAdapter(cfg.DirectoryDialer, cfg.Directory, c.CredentialRepo, c.UserRepo)
	}

	// Initialize services
	c.TokenService = service.NewTokenService(
		c.RefreshTokenRepo,
		c.UserRepo,
		c.Blacklist,
		c.Events,
		cfg.TokenConfig,
	)
	c.AuthService = service.NewAuthService(c.CredentialRepo, c.TokenService, c.Events, adapters)
	c.RBACService = service.NewRBACService(c.UserRepo, c.RoleRepo, c.PermissionRepo)
	c.UserService = service.NewUserService(c.UserRepo, c.CredentialRepo, c.RoleRepo, cfg.UserConfig)

	// Initialize handlers
	c.GRPCHandler = handler.NewGRPCHandler(c.AuthService, c.RBACService, c.UserService)
	c.HealthHandler = handler.NewHealthHandler(serviceName, c.DB, c.Redis)

	return c
}
