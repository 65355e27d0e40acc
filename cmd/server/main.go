package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/database"
	"github.com/nfrund/smartshop/internal/logging"
	"github.com/nfrund/smartshop/internal/server"
)

func main() {
	cfg := config.New()
	logging.New()

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "event", "config_invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := database.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "event", "db_open_failure", "driver", cfg.GetStoreDriver(), "error", err)
		os.Exit(1)
	}

	if _, err := database.Seed(ctx, store, cfg); err != nil {
		slog.Error("Failed to seed store", "event", "db_seed_failure", "error", err)
		store.Close()
		os.Exit(1)
	}

	// Create a new server instance.
	s, err := server.New(cfg, store)
	if err != nil {
		slog.Error("Failed to create server", "event", "server_init_failure", "error", err)
		store.Close()
		os.Exit(1)
	}

	// Register all application routes.
	s.RegisterRoutes()

	// Start the server.
	if err := s.Start(); err != nil {
		slog.Error("Server exited with error", "event", "server_failure", "error", err)
		os.Exit(1)
	}
}
