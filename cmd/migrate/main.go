package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/patwikx/twc-platform/internal/migrations"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/database"
	"github.com/patwikx/twc-platform/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Run(ctx, pool); err != nil {
		logger.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	// First admin comes from the environment so fresh installs can log in
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			logger.Error("ADMIN_EMAIL is set without ADMIN_PASSWORD")
			os.Exit(1)
		}
		name := os.Getenv("ADMIN_NAME")
		if name == "" {
			name = "Administrator"
		}

		created, err := migrations.BootstrapAdmin(ctx, pool, email, password, name)
		if err != nil {
			logger.Error("Admin bootstrap failed", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("Admin account created", "email", email)
		}
	}

	logger.Info("Migration completed")
}
