// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/bilancio, cmd/bilancio-worker and cmd/bilancio-render.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets/google"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	if component != "" {
		cfg.Component = component
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadLayout reads the diagram constants, exiting on a broken layout file.
func LoadLayout(logger *applog.Logger, path string) flow.Params {
	p, err := config.LoadLayout(path)
	if err != nil {
		logger.Error("Failed to load layout file", applog.FieldError, err, "path", path)
		os.Exit(1)
	}
	if path != "" {
		logger.Info("Layout file loaded", "path", path)
	}
	return p
}

// OpenStore opens the configured budget store.
func OpenStore(cfg *config.Config, logger *applog.Logger) (storage.Store, error) {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("SQLite store ready", "path", cfg.SQLiteDBPath)
		return repo, nil
	case "memory", "":
		logger.Warn("Using in-memory store; budgets are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// SheetsConfig maps the environment configuration onto the sheets client.
func SheetsConfig(cfg *config.Config) google.Config {
	return google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		IncomeSheet:     cfg.GoogleIncomeSheet,
		ExpenseSheet:    cfg.GoogleExpenseSheet,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM, after cleanup has
// run or timeout has passed, whichever comes first.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			done := make(chan struct{})
			go func() {
				cleanup(shutdownCtx)
				close(done)
			}()
			select {
			case <-done:
				logger.Info("Shutdown complete")
			case <-shutdownCtx.Done():
				logger.Warn("Shutdown timeout reached")
			}
		}
		cancel()
	}()

	return ctx
}
