// Package store provides durable backends for the transaction manager's
// nonce ledger and in-flight records.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Backend string
	// Path is the snapshot file for the file backend.
	Path  string
	Redis RedisConfig
}

// Store is a txmgr.Store that may hold connections.
type Store interface {
	txmgr.Store
	Close() error
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config, logger logging.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return memoryStore{txmgr.NewMemoryStore()}, nil
	case BackendFile:
		return OpenFileStore(cfg.Path, logger)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

type memoryStore struct {
	*txmgr.MemoryStore
}

func (memoryStore) Close() error { return nil }
