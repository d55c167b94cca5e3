// Package cli provides common CLI initialization utilities shared by
// cmd/fintrack and cmd/fintrack-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

// SetupLogger builds the process logger from a LOG_LEVEL value and installs
// it as the slog default. An unknown level falls back to info.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid log level, using info", applog.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and checks it with validate.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenSlot creates the persistence slot selected by DATA_BACKEND.
func OpenSlot(ctx context.Context, logger *applog.Logger, cfg *config.Config) (backend.Slot, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	slotLogger := logger.WithComponent(applog.ComponentBackend)
	slot, err := backend.NewFactory(slotLogger.Slog()).CreateSlot(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	slotLogger.Info("Persistence slot ready", "backend", bcfg.Type.String())
	return slot, nil
}

// MustOpenSlot is OpenSlot that exits the process on failure.
func MustOpenSlot(ctx context.Context, logger *applog.Logger, cfg *config.Config) backend.Slot {
	slot, err := OpenSlot(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open persistence slot", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return slot
}

// ShutdownTimeout bounds how long components get to stop after a signal.
const ShutdownTimeout = 30 * time.Second

// NotifyShutdown returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged once.
func NotifyShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ShutdownContext returns a fresh context bounded by ShutdownTimeout, for
// cleanup that runs after the main context is already cancelled.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), ShutdownTimeout)
}
