package storage

import (
	"fmt"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New creates the storage backend selected by cfg.Backend.
func New(cfg config.RecordsConfig) (records.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendSQLite, "":
		return NewSQLiteStorage(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported records backend: %s", cfg.Backend)
	}
}
