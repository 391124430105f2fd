package backend

import (
	"context"
	"time"

	"expenses/internal/ports"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready store plus its cleanup.
type BackendResult struct {
	Store   ports.Store
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Suggestion cache
	CacheKind     string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
