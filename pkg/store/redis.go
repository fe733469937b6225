package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/retry"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

type RedisConfig struct {
	URL          string
	Password     string
	KeyPrefix    string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379/0",
		KeyPrefix:    "chainio",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStore keeps nonce states and records in two hashes:
// <prefix>:nonces (field = account) and <prefix>:records (field = record id).
type RedisStore struct {
	client *redis.Client
	prefix string
	logger logging.Logger
	retry  *retry.RetryConfig
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger logging.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	s := NewRedisStoreFromClient(redis.NewClient(opt), cfg.KeyPrefix, logger)
	if err := s.Ping(ctx); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	s.logger.Info("Connected to Redis store", "addr", opt.Addr, "prefix", s.prefix)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger logging.Logger) *RedisStore {
	if prefix == "" {
		prefix = "chainio"
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	rc := retry.DefaultRetryConfig()
	rc.MaxAttempts = 3
	rc.InitialDelay = 50 * time.Millisecond
	rc.MaxDelay = time.Second
	rc.ShouldRetry = func(err error, _ int) bool {
		// Context errors and missing keys are final.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, redis.Nil)
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger, retry: rc}
}

func (s *RedisStore) noncesKey() string  { return s.prefix + ":nonces" }
func (s *RedisStore) recordsKey() string { return s.prefix + ":records" }

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveNonceState(ctx context.Context, state txmgr.NonceState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode nonce state: %w", err)
	}
	return retry.RetryFunc(ctx, func() error {
		return s.client.HSet(ctx, s.noncesKey(), state.Account.Hex(), data).Err()
	}, s.retry, s.logger)
}

func (s *RedisStore) LoadNonceStates(ctx context.Context) ([]txmgr.NonceState, error) {
	fields, err := retry.Retry(ctx, func() (map[string]string, error) {
		return s.client.HGetAll(ctx, s.noncesKey()).Result()
	}, s.retry, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load nonce states: %w", err)
	}
	out := make([]txmgr.NonceState, 0, len(fields))
	for account, raw := range fields {
		var st txmgr.NonceState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("corrupt nonce state for %s: %w", account, err)
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *RedisStore) SaveRecord(ctx context.Context, record *txmgr.TxRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return retry.RetryFunc(ctx, func() error {
		return s.client.HSet(ctx, s.recordsKey(), record.ID, data).Err()
	}, s.retry, s.logger)
}

func (s *RedisStore) DeleteRecord(ctx context.Context, id string) error {
	return retry.RetryFunc(ctx, func() error {
		return s.client.HDel(ctx, s.recordsKey(), id).Err()
	}, s.retry, s.logger)
}

func (s *RedisStore) LoadRecords(ctx context.Context) ([]*txmgr.TxRecord, error) {
	fields, err := retry.Retry(ctx, func() (map[string]string, error) {
		return s.client.HGetAll(ctx, s.recordsKey()).Result()
	}, s.retry, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	out := make([]*txmgr.TxRecord, 0, len(fields))
	for id, raw := range fields {
		rec := new(txmgr.TxRecord)
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			s.logger.Error("Skipping corrupt record", "id", id, "error", err)
			continue
		}
		out = append(out, rec)
	}
	txmgr.SortRecords(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
