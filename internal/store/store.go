package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fragmede/campus/internal/config"
)

// Keys persisted across restarts.
const (
	KeyToken    = "token"
	KeyUserRole = "userRole"
)

// Store is a durable string key-value store. Writes are last-write-wins.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by cfg.Store.
func Open(cfg config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return OpenSQLite(cfg.DBPath)
	case config.StoreRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, WithPrefix(cfg.RedisPrefix)), nil
	case config.StoreMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
