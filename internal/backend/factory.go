// Package backend builds the configured store and suggestion cache.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expenses/internal/cache"
	"expenses/internal/config"
	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

// snapshotCacheSize is the LRU capacity; the cache only ever holds the one
// examples snapshot.
const snapshotCacheSize = 1

// redisPrefix namespaces suggestion keys in a shared Redis.
const redisPrefix = "expenses:suggest:"

// redisGenerationKey holds the snapshot generation shared by the API server
// and the worker. It sits outside redisPrefix so Size only counts snapshots.
const redisGenerationKey = "expenses:suggest-generation"

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(cfg)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(cfg Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// CacheResult is the suggestion snapshot cache, the generation versioning
// it, and its cleanup. Cache is nil when caching is disabled.
type CacheResult struct {
	Cache      cache.Cache[[]core.Example]
	Generation cache.Generation
	Manager    *cache.Manager
	Cleanup    CleanupFunc
}

// CreateSuggestionCache builds the snapshot cache selected by cfg.CacheKind.
func (f *DefaultFactory) CreateSuggestionCache(cfg Config) (*CacheResult, error) {
	switch cfg.CacheKind {
	case "", config.SuggestCacheNone:
		f.logger.Info("Suggestion cache disabled")
		return &CacheResult{Cleanup: func() error { return nil }}, nil

	case config.SuggestCacheLRU:
		lru := cache.NewLRUCache[[]core.Example](snapshotCacheSize, cfg.CacheTTL)
		manager := cache.NewManager()
		manager.Register(lru)
		manager.StartCleanup(cfg.CacheTTL)
		f.logger.Info("Initialized in-process suggestion cache", "ttl", cfg.CacheTTL)
		return &CacheResult{
			Cache:      lru,
			Generation: &cache.LocalGeneration{},
			Manager:    manager,
			Cleanup: func() error {
				manager.Stop()
				return nil
			},
		}, nil

	case config.SuggestCacheRedis:
		client, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		f.logger.Info("Initialized Redis suggestion cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.CacheTTL)
		return &CacheResult{
			Cache:      cache.NewRedisCache[[]core.Example](client, redisPrefix, cfg.CacheTTL),
			Generation: cache.NewRedisGeneration(client, redisGenerationKey),
			Cleanup:    client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported suggestion cache: %s", cfg.CacheKind)
	}
}
