package store

import (
	"fmt"
	"path/filepath"

	"tourcache/internal/config"
	"tourcache/internal/offline"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. The "memory" type backs tests and throwaway runs.
func NewStoreFromConfig(cfg config.DatabaseConfig, clock offline.Clock) (offline.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "tourcache.db"), clock)
	case "memory":
		return NewSQLiteStore(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
