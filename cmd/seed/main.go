package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fixora/accounts/application/port/inbound"
	"github.com/fixora/accounts/application/usecase"
	"github.com/fixora/accounts/infrastructure/adapter/postgres"
	"github.com/fixora/accounts/infrastructure/config"
	"github.com/fixora/accounts/infrastructure/http/validator"
	"github.com/fixora/accounts/infrastructure/service/jwt"
	"github.com/fixora/accounts/infrastructure/service/logger"
	"github.com/fixora/accounts/infrastructure/service/password"
)

// seed registers a demo account through the regular registration flow.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	seedLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      "text",
		ServiceName: "accounts-seed",
	})

	req := inbound.CreateUserRequest{
		Username: getenvDefault("SEED_USERNAME", "demo"),
		Gmail:    getenvDefault("SEED_GMAIL", "demo@example.com"),
		Password: getenvDefault("SEED_PASSWORD", "Demo1234!"),
		Birthday: getenvDefault("SEED_BIRTHDAY", "1990-01-01"),
	}
	if err := validator.ValidateStruct(req); err != nil {
		log.Fatalf("invalid seed account: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("failed to initialize JWT service: %v", err)
	}

	accounts := usecase.NewAccountUseCase(
		postgres.NewUserRepositoryAdapter(db),
		tokenService,
		password.NewBcryptPasswordService(cfg.BcryptCost),
		seedLogger,
	)

	user, err := accounts.Register(ctx, req)
	switch {
	case errors.Is(err, usecase.ErrUsernameTaken), errors.Is(err, usecase.ErrGmailTaken):
		seedLogger.Info(ctx, "Seed account already present", map[string]interface{}{"username": req.Username})
		return
	case err != nil:
		log.Fatalf("failed to seed account: %v", err)
	}

	fmt.Printf("Seeded account: username=%s gmail=%s id=%s\n", user.Username, user.Gmail, user.ID)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
