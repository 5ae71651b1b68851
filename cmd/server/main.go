package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/AlexTLDR/charter/internal/clock"
	"github.com/AlexTLDR/charter/internal/config"
	"github.com/AlexTLDR/charter/internal/database"
	"github.com/AlexTLDR/charter/internal/server"
	"github.com/AlexTLDR/charter/internal/signup"
	"github.com/AlexTLDR/charter/internal/telemetry"
)

func main() {
	// Load .env file (ignore error if a file doesn't exist)
	// Use Overload to force to overwrite any existing environment variables
	err := godotenv.Overload()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level,
	}))
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup(context.Background(), "charter", cfg.TracingEndpoint())
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func(db *database.DB) {
		err := db.Close()
		if err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}(db)

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	clk := clock.System(cfg.Location)
	engine := signup.NewEngine(db, clk, signup.Options{
		SophomoreWindow: cfg.Sophomores,
		Location:        cfg.Location,
	}, logger.With("component", "signup"))

	// Create and start the server
	srv := server.New(cfg, engine, db, clk, logger)

	slog.Info("starting server",
		"port", cfg.Port,
		"time_zone", cfg.Location.String(),
		"sophomore_window", string(cfg.Sophomores),
	)
	if err := srv.Start(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
