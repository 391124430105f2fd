package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/storage/memory"
	"expenses/internal/suggest"
)

type fakeSnapshot struct {
	mu     sync.Mutex
	warmed int
	err    error
}

func (f *fakeSnapshot) Warm(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed++
	return 3, f.err
}

func (f *fakeSnapshot) warms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warmed
}

func TestHandleCategoryEvent(t *testing.T) {
	snap := &fakeSnapshot{}
	w := NewCacheWorker(snap)

	err := w.HandleCategoryEvent(context.Background(), amqp.NewCategoryEvent(amqp.KindExampleCreated, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, snap.warms())
}

func TestHandleCategoryEventWarmFailure(t *testing.T) {
	snap := &fakeSnapshot{err: errors.New("db locked")}
	w := NewCacheWorker(snap)

	err := w.HandleCategoryEvent(context.Background(), amqp.NewCategoryEvent(amqp.KindCategoryDeleted, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestHandleTransactionEventDoesNotTouchCache(t *testing.T) {
	snap := &fakeSnapshot{}
	w := NewCacheWorker(snap)

	err := w.HandleTransactionEvent(context.Background(),
		amqp.NewTransactionEvent(amqp.KindTransactionCreated, 7, 1, -1299))
	require.NoError(t, err)

	assert.Zero(t, snap.warms())
}

func TestStartupWarm(t *testing.T) {
	snap := &fakeSnapshot{}
	require.NoError(t, NewCacheWorker(snap).StartupWarm(context.Background()))
	assert.Equal(t, 1, snap.warms())

	snap.err = errors.New("boom")
	assert.Error(t, NewCacheWorker(snap).StartupWarm(context.Background()))
}

func TestPeriodicRefreshStopsWithContext(t *testing.T) {
	snap := &fakeSnapshot{}
	w := NewCacheWorker(snap)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.PeriodicRefresh(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return snap.warms() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PeriodicRefresh did not stop")
	}
}

func TestWorkerRefreshesRealSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	snapshot := suggest.NewCachedSource(store, cache.NewLRUCache[[]core.Example](1, time.Hour), nil)
	w := NewCacheWorker(snapshot)

	require.NoError(t, w.StartupWarm(ctx))
	assert.Equal(t, 1, snapshot.Size(ctx))

	c, err := store.CreateCategory(ctx, core.Category{Name: "Food"}, nil)
	require.NoError(t, err)
	_, err = store.CreateExample(ctx, core.Example{CategoryID: c.ID, Description: "REWE", Keywords: []string{"rewe"}})
	require.NoError(t, err)

	require.NoError(t, w.HandleCategoryEvent(ctx, amqp.NewCategoryEvent(amqp.KindExampleCreated, c.ID)))

	examples, err := snapshot.ListExamples(ctx)
	require.NoError(t, err)
	assert.Len(t, examples, 1)
}
