package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/api-gateway/internal/client"
	"github.com/prohmpiriya/hr-identity/apps/api-gateway/internal/handler"
	"github.com/prohmpiriya/hr-identity/apps/api-gateway/internal/middleware"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/config"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/redis"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

const serviceName = "api-gateway"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting API Gateway...")

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

	// Access token signer
	signer, err := accesstoken.NewSigner(accesstoken.Config{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		appLog.Fatal("Invalid JWT settings", zap.Error(err))
	}

	// Auth manager client
	authManager, err := client.NewAuthManager(&client.Config{
		Target:      cfg.GRPC.AuthManagerAddr,
		CallTimeout: cfg.GRPC.CallTimeout,
	})
	if err != nil {
		appLog.Fatal("Failed to create auth manager client", zap.Error(err))
	}
	defer authManager.Close()
	appLog.Info(fmt.Sprintf("Auth manager target %s", cfg.GRPC.AuthManagerAddr))

	// Redis backs idempotent admin calls; the gateway runs without it
	var replays middleware.ReplayStore
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
		MaxRetries:    1,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		replays = redisClient.Client()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// Initialize Gin router
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware("/health", "/ready", "/metrics"))
	router.Use(middleware.Logger(appLog, "/health", "/ready", "/metrics"))
	router.Use(middleware.CORSWithConfig(cors))
	router.Use(metrics.Handler())

	handler.RegisterRoutes(router, &handler.RouterConfig{
		Auth:        handler.NewAuthHandler(authManager, signer, metrics),
		Admin:       handler.NewAdminHandler(authManager),
		Health:      handler.NewHealthHandler(authManager),
		Signer:      signer,
		Checker:     authManager,
		RateLimiter: limiter,
		Metrics:     metrics,
		Replays:     replays,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLog.Info(fmt.Sprintf("API Gateway listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("API Gateway exited gracefully")
}
