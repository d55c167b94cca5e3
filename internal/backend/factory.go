package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new slot factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateSlot implements Factory.CreateSlot
func (f *DefaultFactory) CreateSlot(ctx context.Context, config Config) (Slot, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		f.logger.Warn("Using in-memory slot, data will not survive a restart")
		return storage.NewMemorySlot(), nil

	case FileBackend:
		slot, err := storage.NewFileSlot(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file slot: %w", err)
		}
		f.logger.Info("Initialized file slot", "path", config.DataFile)
		return slot, nil

	case SQLiteBackend:
		slot, err := storage.NewSQLiteSlot(config.SQLiteDBPath, config.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite slot: %w", err)
		}
		f.logger.Info("Initialized SQLite slot", "db_path", config.SQLiteDBPath, "key", config.Key)
		return slot, nil

	case PostgresBackend:
		slot, err := storage.NewPostgresSlot(ctx, config.DatabaseURL, config.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres slot: %w", err)
		}
		f.logger.Info("Initialized Postgres slot", "key", config.Key)
		return slot, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
