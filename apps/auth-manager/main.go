package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/di"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/service"
	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
	"github.com/prohmpiriya/hr-identity/pkg/config"
	"github.com/prohmpiriya/hr-identity/pkg/database"
	"github.com/prohmpiriya/hr-identity/pkg/kafka"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/redis"
	"github.com/prohmpiriya/hr-identity/pkg/retry"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

const serviceName = "auth-manager"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateAuthDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}
	if err := cfg.ValidateDirectory(); err != nil {
		log.Fatalf("Invalid directory config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Auth Manager...")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.AuthDatabase.Host,
		Port:            cfg.AuthDatabase.Port,
		User:            cfg.AuthDatabase.User,
		Password:        cfg.AuthDatabase.Password,
		Database:        cfg.AuthDatabase.DBName,
		SSLMode:         cfg.AuthDatabase.SSLMode,
		MaxConns:        int32(cfg.AuthDatabase.MaxOpenConns),
		MinConns:        int32(cfg.AuthDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.AuthDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.AuthDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if err := repository.EnsureSchema(ctx, db); err != nil {
		appLog.Fatal("Schema bootstrap failed", zap.Error(err))
	}

	// Initialize Redis (token blacklist)
	redisClient, err := redis.NewClient(ctx, &redis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	// Security events
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			MaxRetries:     3,
			RetryInterval:  time.Second,
			ProduceTimeout: 5 * time.Second,
		})
		if err != nil {
			appLog.Warn("Kafka unavailable, security events disabled", zap.Error(err))
		} else {
			publisher = event.NewKafkaPublisher(producer, &event.KafkaPublisherConfig{
				Topic:       cfg.Kafka.SecurityTopic,
				ServiceName: serviceName,
			}, appLog)
		}
	}
	defer publisher.Close()

	// Directory adapter
	var dialer adapter.DirectoryDialer
	if cfg.Directory.Enabled {
		dialer = &adapter.LDAPDialer{URL: cfg.Directory.URL, Timeout: cfg.Directory.Timeout}
		appLog.Info("Directory authentication enabled", zap.String("url", cfg.Directory.URL))
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Events:          publisher,
		DirectoryDialer: dialer,
		Directory: adapter.DirectoryConfig{
			BaseDN:       cfg.Directory.BaseDN,
			BindDN:       cfg.Directory.BindDN,
			BindPassword: cfg.Directory.BindPassword,
			UserFilter:   cfg.Directory.UserFilter,
			Retry:        retry.DefaultConfig(),
		},
		TokenConfig: &service.TokenServiceConfig{
			AccessTokenTTL:        cfg.JWT.AccessTokenTTL,
			RefreshTokenTTL:       cfg.JWT.RefreshTokenTTL,
			RevokeRefreshOnLogout: cfg.Auth.RevokeRefreshOnLogout,
		},
		UserConfig: &service.UserServiceConfig{
			BcryptCost: cfg.Auth.BcryptCost,
		},
	})

	// gRPC server
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(telemetry.UnaryServerInterceptor()))
	authrpc.RegisterAuthServiceServer(grpcServer, container.GRPCHandler)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go container.HealthHandler.Watch(watchCtx, 10*time.Second, func(ready bool) {
		status := healthpb.HealthCheckResponse_SERVING
		if !ready {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus(authrpc.ServiceName, status)
	})

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		appLog.Fatal("Failed to listen", zap.String("addr", cfg.GRPC.Addr()), zap.Error(err))
	}
	go func() {
		appLog.Info(fmt.Sprintf("Auth Manager gRPC listening on %s", cfg.GRPC.Addr()))
		if err := grpcServer.Serve(lis); err != nil {
			appLog.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	// Health HTTP server
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		appLog.Info(fmt.Sprintf("Auth Manager health endpoints on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down...")
	stopWatch()
	healthServer.Shutdown()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Auth Manager exited gracefully")
}
