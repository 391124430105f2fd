package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"expenses/internal/cache"
	"expenses/internal/core"
)

// SnapshotKey prefixes the cache keys holding example snapshots.
const SnapshotKey = "examples"

// CachedSource serves ListExamples from a cached snapshot of the underlying
// source. Concurrent misses share a single load.
//
// Snapshots are keyed by generation. Invalidate bumps the generation, so a
// load that read the source before a write can only store its result under
// a key no later reader asks for.
type CachedSource struct {
	source ExampleSource
	cache  cache.Cache[[]core.Example]
	gen    cache.Generation
	group  singleflight.Group

	// mu orders bumps against updates of bypass.
	mu sync.Mutex
	// bypass is set while an invalidation is outstanding; reads go to the
	// source until a bump succeeds.
	bypass atomic.Bool
}

// NewCachedSource wraps source with c. A nil gen keeps the generation in
// process, which is only correct when no other process writes to c.
func NewCachedSource(source ExampleSource, c cache.Cache[[]core.Example], gen cache.Generation) *CachedSource {
	if gen == nil {
		gen = &cache.LocalGeneration{}
	}
	return &CachedSource{source: source, cache: c, gen: gen}
}

func snapshotKey(gen uint64) string {
	return SnapshotKey + ":" + strconv.FormatUint(gen, 10)
}

func (s *CachedSource) ListExamples(ctx context.Context) ([]core.Example, error) {
	if s.bypass.Load() {
		if err := s.Invalidate(ctx); err != nil {
			return s.source.ListExamples(ctx)
		}
	}

	gen, err := s.gen.Current(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot generation unavailable, reading source", "error", err)
		return s.source.ListExamples(ctx)
	}

	key := snapshotKey(gen)
	if examples, ok := s.cache.Get(ctx, key); ok {
		return examples, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		examples, err := s.source.ListExamples(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, gen, examples)
		return examples, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Example snapshot load shared", "generation", gen)
	}
	return v.([]core.Example), nil
}

// store writes a snapshot loaded at gen, dropping it again when the
// generation moved while it was being written.
func (s *CachedSource) store(ctx context.Context, gen uint64, examples []core.Example) {
	key := snapshotKey(gen)
	s.cache.Set(ctx, key, examples)
	if cur, err := s.gen.Current(ctx); err != nil || cur != gen {
		s.cache.Delete(ctx, key)
	}
}

// Invalidate bumps the generation so the next read reloads from the source.
// On failure reads bypass the cache until a later bump succeeds.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, err := s.gen.Bump(ctx)
	if err != nil {
		s.bypass.Store(true)
		return fmt.Errorf("bump snapshot generation: %w", err)
	}
	s.bypass.Store(false)
	s.cache.Delete(ctx, snapshotKey(gen-1))
	return nil
}

// Warm reloads the snapshot from the source and returns its size.
func (s *CachedSource) Warm(ctx context.Context) (int, error) {
	if err := s.Invalidate(ctx); err != nil {
		return 0, err
	}
	examples, err := s.ListExamples(ctx)
	if err != nil {
		return 0, err
	}
	return len(examples), nil
}

// Size reports the number of cached snapshots.
func (s *CachedSource) Size(ctx context.Context) int {
	return s.cache.Size(ctx)
}
