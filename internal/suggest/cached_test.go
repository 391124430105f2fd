package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/cache"
	"expenses/internal/core"
)

func newCached(src ExampleSource) *CachedSource {
	return NewCachedSource(src, cache.NewLRUCache[[]core.Example](4, time.Minute), nil)
}

func TestCachedSourceServesSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{examples: seedExamples()}
	cs := newCached(src)

	for i := 0; i < 3; i++ {
		got, err := cs.ListExamples(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 7)
	}
	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 1, cs.Size(ctx))
}

func TestCachedSourceInvalidate(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{examples: seedExamples()}
	cs := newCached(src)
	e := NewEngine(cs)

	got, err := e.Suggest(ctx, "netflix")
	require.NoError(t, err)
	assert.Empty(t, got)

	src.mu.Lock()
	src.examples = append(src.examples, core.Example{ID: 8, CategoryID: 3, CategoryName: "Entertainment", Keywords: []string{"netflix"}})
	src.mu.Unlock()
	require.NoError(t, cs.Invalidate(ctx))

	got, err = e.Suggest(ctx, "netflix")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Entertainment", got[0].CategoryName)
	assert.Equal(t, 2, src.callCount())
}

func TestCachedSourceErrorNotCached(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: errors.New("locked")}
	cs := newCached(src)

	_, err := cs.ListExamples(ctx)
	require.Error(t, err)
	assert.Zero(t, cs.Size(ctx))

	src.mu.Lock()
	src.err = nil
	src.examples = seedExamples()
	src.mu.Unlock()

	got, err := cs.ListExamples(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

func TestCachedSourceWarm(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{examples: seedExamples()}
	cs := newCached(src)

	n, err := cs.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = cs.ListExamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.callCount())
}

type blockingSource struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingSource) ListExamples(context.Context) ([]core.Example, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return seedExamples(), nil
}

func TestCachedSourceCoalescesMisses(t *testing.T) {
	ctx := context.Background()
	src := &blockingSource{release: make(chan struct{})}
	cs := newCached(src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cs.ListExamples(ctx)
			assert.NoError(t, err)
			assert.Len(t, got, 7)
		}()
	}

	// Give the goroutines time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Less(t, src.calls, 10)
}

func TestCachedSourceStaleLoadNotStored(t *testing.T) {
	ctx := context.Background()
	src := &blockingSource{release: make(chan struct{})}
	cs := newCached(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cs.ListExamples(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cs.Invalidate(ctx))
	close(src.release)
	<-done

	assert.Zero(t, cs.Size(ctx), "a load started before Invalidate must not repopulate the cache")
}

// slowSetCache blocks the first Set until release is closed.
type slowSetCache struct {
	cache.Cache[[]core.Example]
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *slowSetCache) Set(ctx context.Context, key string, data []core.Example) {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.release
	}
	c.Cache.Set(ctx, key, data)
}

func TestCachedSourceWriteDuringSnapshotStore(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{examples: seedExamples()}
	slow := &slowSetCache{
		Cache:   cache.NewLRUCache[[]core.Example](4, time.Minute),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cs := NewCachedSource(src, slow, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cs.ListExamples(ctx)
	}()
	<-slow.entered

	src.mu.Lock()
	src.examples = append(src.examples, core.Example{ID: 8, CategoryID: 6, CategoryName: "Pets", Keywords: []string{"fressnapf"}})
	src.mu.Unlock()
	require.NoError(t, cs.Invalidate(ctx))

	close(slow.release)
	<-done

	got, err := NewEngine(cs).Suggest(ctx, "FRESSNAPF")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pets", got[0].CategoryName)
}

// Two CachedSources sharing a cache and a generation behave like the API
// server and the worker sharing Redis.
func TestCachedSourceStaleWriterFromOtherProcess(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewLRUCache[[]core.Example](4, time.Minute)
	gen := &cache.LocalGeneration{}

	slowSrc := &blockingSource{release: make(chan struct{})}
	worker := NewCachedSource(slowSrc, shared, gen)

	src := &fakeSource{examples: seedExamples()}
	server := NewCachedSource(src, shared, gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = worker.ListExamples(ctx)
	}()
	time.Sleep(20 * time.Millisecond)

	src.mu.Lock()
	src.examples = append(src.examples, core.Example{ID: 8, CategoryID: 6, CategoryName: "Pets", Keywords: []string{"fressnapf"}})
	src.mu.Unlock()
	require.NoError(t, server.Invalidate(ctx))

	close(slowSrc.release)
	<-done

	got, err := NewEngine(server).Suggest(ctx, "fressnapf")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

type failingGeneration struct {
	mu   sync.Mutex
	fail bool
	n    uint64
}

func (g *failingGeneration) Current(context.Context) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n, nil
}

func (g *failingGeneration) Bump(context.Context) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return 0, errors.New("connection refused")
	}
	g.n++
	return g.n, nil
}

func (g *failingGeneration) setFail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}

func TestCachedSourceFailedInvalidateReadsSource(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{examples: seedExamples()}
	gen := &failingGeneration{}
	cs := NewCachedSource(src, cache.NewLRUCache[[]core.Example](4, time.Minute), gen)
	e := NewEngine(cs)

	got, err := e.Suggest(ctx, "netflix")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, src.callCount())

	src.mu.Lock()
	src.examples = append(src.examples, core.Example{ID: 8, CategoryID: 3, CategoryName: "Entertainment", Keywords: []string{"netflix"}})
	src.mu.Unlock()

	gen.setFail(true)
	require.Error(t, cs.Invalidate(ctx))

	for i := 0; i < 2; i++ {
		got, err = e.Suggest(ctx, "netflix")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 3, src.callCount(), "reads bypass the cache while the generation is stuck")

	gen.setFail(false)
	got, err = e.Suggest(ctx, "netflix")
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, err = e.Suggest(ctx, "netflix")
	require.NoError(t, err)
	assert.Equal(t, 4, src.callCount(), "caching resumes after a successful bump")
}
