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

	"github.com/fixora/accounts/application/usecase"
	"github.com/fixora/accounts/infrastructure/adapter/cache"
	"github.com/fixora/accounts/infrastructure/adapter/postgres"
	"github.com/fixora/accounts/infrastructure/config"
	"github.com/fixora/accounts/infrastructure/http/handler"
	"github.com/fixora/accounts/infrastructure/http/middleware"
	"github.com/fixora/accounts/infrastructure/service/jwt"
	"github.com/fixora/accounts/infrastructure/service/logger"
	"github.com/fixora/accounts/infrastructure/service/password"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "accounts",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"version": "1.0.0",
		"env":     cfg.Environment,
	})

	if cfg.UsesDefaultSecrets() {
		logger.LogSecurityEvent(ctx, structuredLogger, "default_jwt_secret", "HIGH", map[string]interface{}{
			"hint": "set JWT_SECRET and JWT_REFRESH_SECRET",
		})
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig())
	if err != nil {
		structuredLogger.Error(ctx, "Failed to connect to database", err, nil)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	structuredLogger.Info(ctx, "Database connection established", nil)

	userCache, err := cache.NewUserCache(ctx, cache.UserCacheConfig{
		Enabled:  cfg.CacheEnabled,
		RedisURL: cfg.RedisURL,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		// the cache is optional; serve straight from Postgres
		structuredLogger.Error(ctx, "Failed to initialize user cache", err, nil)
		userCache = cache.NoopUserCache{}
	} else {
		structuredLogger.Info(ctx, "User cache initialized", map[string]interface{}{
			"enabled": cfg.CacheEnabled,
			"ttl":     cfg.CacheTTL.String(),
		})
	}

	userRepo := postgres.NewUserRepositoryAdapter(db)

	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize JWT service", err, nil)
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	accountUseCase := usecase.NewAccountUseCase(
		userRepo,
		tokenService,
		passwordService,
		structuredLogger,
		usecase.WithUserCache(userCache),
	)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, structuredLogger)
	accountHandler := handler.NewAccountHandler(accountUseCase, authMiddleware, structuredLogger)

	router := handler.NewRouter(handler.RouterConfig{
		DocsDir:              "api",
		CORSEnabled:          cfg.CORSEnabled,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		CORSAllowCredentials: cfg.CORSAllowCredentials,
	}, accountHandler, structuredLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"host": cfg.ServerHost,
				"port": cfg.ServerPort,
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
