package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/fixora/accounts/infrastructure/adapter/postgres"
	"github.com/fixora/accounts/infrastructure/service/logger"
)

func main() {
	mode := flag.String("mode", postgres.DirectionUp, "migration mode: up or down")
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	steps := flag.Int("steps", 0, "number of migrations to revert in down mode (0 = all)")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	migrationLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       "info",
		Format:      "text",
		ServiceName: "accounts-migrate",
	})

	db, err := postgres.Open(ctx, dsn, postgres.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	migrator := postgres.NewMigrator(db, *dir, migrationLogger)

	switch strings.ToLower(*mode) {
	case postgres.DirectionUp:
		applied, err := migrator.Up(ctx)
		if err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		migrationLogger.Info(ctx, "Migration up completed", map[string]interface{}{"applied": applied})
	case postgres.DirectionDown:
		reverted, err := migrator.Down(ctx, *steps)
		if err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		migrationLogger.Info(ctx, "Migration down completed", map[string]interface{}{"reverted": reverted})
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}
