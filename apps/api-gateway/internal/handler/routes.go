package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/hr-identity/apps/api-gateway/internal/middleware"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
)

// Permissions guarding the admin API
const (
	PermUsersManage = "users.manage"
	PermRolesManage = "roles.manage"
)

// RouterConfig holds what RegisterRoutes needs
type RouterConfig struct {
	Auth        *AuthHandler
	Admin       *AdminHandler
	Health      *HealthHandler
	Signer      *accesstoken.Signer
	Checker     middleware.RevocationChecker
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.Metrics
	// Replays guards admin create calls; nil disables it
	Replays middleware.ReplayStore
}

// RegisterRoutes mounts the public API on r
func RegisterRoutes(r *gin.Engine, cfg *RouterConfig) {
	r.GET("/health", cfg.Health.Health)
	r.GET("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Exposition()))
	}

	authenticated := middleware.JWTAuth(cfg.Signer, cfg.Checker)
	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth", cfg.RateLimiter.Handler())
	{
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/refresh", cfg.Auth.Refresh)
		auth.POST("/logout", authenticated, cfg.Auth.Logout)
		auth.GET("/me", authenticated, cfg.Auth.Me)
	}

	admin := v1.Group("/admin", authenticated)
	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{Store: cfg.Replays})

	users := admin.Group("/users", middleware.RequirePermission(PermUsersManage))
	{
		users.GET("", cfg.Admin.ListUsers)
		users.POST("", idempotent, cfg.Admin.CreateUser)
		users.GET("/:id/permissions", cfg.Admin.GetUserPermissions)
		users.PUT("/:id/roles", cfg.Admin.AssignRoles)
		users.PUT("/:id/active", cfg.Admin.SetUserActive)
		users.PUT("/:id/credentials/:type/active", cfg.Admin.SetCredentialActive)
		users.PUT("/:id/password", cfg.Admin.ChangePassword)
	}

	roles := admin.Group("/roles", middleware.RequirePermission(PermRolesManage))
	{
		roles.GET("", cfg.Admin.ListRoles)
		roles.POST("", idempotent, cfg.Admin.CreateRole)
		roles.PUT("/:id/permissions", cfg.Admin.SetRolePermissions)
	}

	perms := admin.Group("/permissions", middleware.RequirePermission(PermRolesManage))
	{
		perms.GET("", cfg.Admin.ListPermissions)
		perms.POST("", idempotent, cfg.Admin.CreatePermission)
		perms.PUT("/:id", cfg.Admin.UpdatePermission)
		perms.DELETE("/:id", cfg.Admin.DeletePermission)
	}
}
