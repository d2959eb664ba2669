// Package main runs the multi-tenant API server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tessera-saas/backend/config"
	"github.com/tessera-saas/backend/internal/auth"
	"github.com/tessera-saas/backend/internal/middleware"
	"github.com/tessera-saas/backend/internal/organizations"
	"github.com/tessera-saas/backend/internal/tenantdb"
	"github.com/tessera-saas/backend/internal/users"
	"github.com/tessera-saas/backend/pkg/database"
	"github.com/tessera-saas/backend/pkg/redis"
	"github.com/tessera-saas/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	registry := tenantdb.NewRegistry(cfg.Database.DSN(), cfg.Tenant.DBPrefix, logger)
	defer registry.Close()

	corePool, err := registry.Core(ctx)
	if err != nil {
		logger.Fatal("core database", zap.Error(err))
	}
	if err := database.MigrateCore(ctx, corePool); err != nil {
		logger.Fatal("migrate core", zap.Error(err))
	}

	adminDSN := cfg.Tenant.AdminURL
	if adminDSN == "" {
		adminDSN = cfg.Database.DSN()
	}
	provisioner := tenantdb.NewProvisioner(adminDSN, cfg.Tenant.MaintenanceDB, cfg.Tenant.DBPrefix, logger)

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireMinutes)
	authHandler := auth.NewHandler(tenantdb.NewSessions(registry), tokens, logger)

	orgRepo := organizations.NewRepository(corePool)
	orgService := organizations.NewService(orgRepo, provisioner, organizations.NewRegistryTenantUsers(registry), logger)
	orgHandler := organizations.NewHandler(orgService, logger)

	userHandler := users.NewHandler(logger)

	var (
		coreUsers   auth.CoreUserRepository
		tenantUsers auth.TenantUserRepository
	)

	// Redis is optional; without it the auth endpoints simply run unthrottled.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/", func(c *gin.Context) { response.OK(c, gin.H{"message": "Multi-Tenant API is running"}) })
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "healthy"}) })

	// Auth (public; routed to core or tenant by X-TENANT)
	authGroup := router.Group("/api/auth")
	if rdb != nil {
		authGroup.Use(middleware.RateLimit(rdb.Client, 20, time.Minute, logger))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Organizations (core-scoped token required)
	orgGroup := router.Group("/api/organizations")
	orgGroup.Use(middleware.RequireCoreAuth(tokens, registry, coreUsers.GetByID))
	orgGroup.POST("/", orgHandler.Create)

	// Tenant profile (tenant-scoped token + matching X-TENANT required)
	usersGroup := router.Group("/api/users")
	usersGroup.Use(middleware.RequireTenantAuth(tokens, registry, tenantUsers.GetByID))
	usersGroup.GET("/me", userHandler.Me)
	usersGroup.PUT("/me", userHandler.UpdateMe)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
