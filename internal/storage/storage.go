// Package storage provides the durable key-value stores the session list is
// persisted in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"EagleChat/internal/config"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is a durable string key-value store.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (KV, error) {
	var (
		kv  KV
		err error
	)

	switch cfg.Driver {
	case config.StorageFile:
		kv, err = NewFile(cfg.Path)
	case config.StorageSQLite:
		kv, err = NewSQLite(cfg.Path)
	case config.StorageRedis:
		kv, err = NewRedis(ctx, cfg.RedisURL, cfg.Prefix)
	case config.StorageMemory:
		kv = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}

	if logger != nil {
		logger.Info("storage opened", "driver", cfg.Driver, "path", cfg.Path)
	}
	return kv, nil
}
