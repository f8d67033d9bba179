package cache

import (
	"fmt"
	"time"

	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SnapshotStoreFactory creates snapshot stores based on configuration
type SnapshotStoreFactory struct {
	redisConfig           config.RedisConfig
	backend               string
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SnapshotStoreFactoryOption is a functional option for configuring the factory
type SnapshotStoreFactoryOption func(*SnapshotStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSnapshotStoreFactory creates a new factory
func NewSnapshotStoreFactory(redisCfg config.RedisConfig, filterCfg config.FilterConfig, opts ...SnapshotStoreFactoryOption) *SnapshotStoreFactory {
	f := &SnapshotStoreFactory{
		redisConfig:           redisCfg,
		backend:               filterCfg.SnapshotBackend,
		ttl:                   filterCfg.SnapshotTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based snapshot store
func (f *SnapshotStoreFactory) CreateRedisStore() (*RedisSnapshotStore, error) {
	store, err := NewRedisSnapshotStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis snapshot store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates an in-memory snapshot store.
// Snapshots are lost on restart and are not shared between instances.
func (f *SnapshotStoreFactory) CreateInMemoryStore() *InMemorySnapshotStore {
	return NewInMemorySnapshotStore(f.ttl)
}

// CreateStore creates the configured snapshot store. When the backend is
// redis and Redis is unreachable it falls back to memory if allowed.
func (f *SnapshotStoreFactory) CreateStore() (shared.SnapshotStore, error) {
	if f.backend != config.SnapshotBackendRedis {
		f.logger.Info("using in-memory snapshot store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis snapshot store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for snapshots but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory snapshot store. "+
		"Selections will not survive a restart.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
