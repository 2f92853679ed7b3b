package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/seed"
	"github.com/prohmpiriya/hr-identity/pkg/config"
	"github.com/prohmpiriya/hr-identity/pkg/database"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateAuthDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "auth-manager-seed",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:           cfg.AuthDatabase.Host,
		Port:           cfg.AuthDatabase.Port,
		User:           cfg.AuthDatabase.User,
		Password:       cfg.AuthDatabase.Password,
		Database:       cfg.AuthDatabase.DBName,
		SSLMode:        cfg.AuthDatabase.SSLMode,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     5,
		RetryInterval:  2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		appLog.Fatal("Schema bootstrap failed", zap.Error(err))
	}

	seeder := seed.NewSeeder(
		repository.NewPostgresUserRepository(db.Pool()),
		repository.NewPostgresCredentialRepository(db.Pool()),
		repository.NewPostgresRoleRepository(db.Pool()),
		repository.NewPostgresPermissionRepository(db.Pool()),
		cfg.Auth.BcryptCost,
	)

	admin := seed.DefaultAdmin()
	if password := os.Getenv("SEED_ADMIN_PASSWORD"); password != "" {
		admin.Password = password
	}

	result, err := seeder.Run(ctx, admin)
	if err != nil {
		appLog.Fatal("Seeding failed", zap.Error(err))
	}
	appLog.Info("Seeding complete",
		zap.Int("permissions", result.Permissions),
		zap.Int("roles", result.Roles),
		zap.Bool("admin_created", result.AdminCreated),
		zap.String("admin_id", result.AdminID),
	)
}
