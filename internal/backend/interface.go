package backend

import (
	"context"

	"fintrack/internal/store"
)

// Slot is a store.Slot that owns resources which must be released.
type Slot interface {
	store.Slot
	Close() error
}

// Factory creates persistence slots based on configuration
type Factory interface {
	CreateSlot(ctx context.Context, config Config) (Slot, error)
}

// Config holds configuration for slot creation
type Config struct {
	Type BackendType
	Key  string

	// File specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
