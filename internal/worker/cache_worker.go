// Package worker consumes change events and keeps the shared suggestion
// snapshot fresh.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expenses/internal/amqp"
)

// Snapshot is the cached suggestion data the worker maintains. Warm
// invalidates before reloading.
type Snapshot interface {
	Warm(ctx context.Context) (int, error)
}

// CacheWorker rebuilds the suggestion snapshot whenever category data
// changes. It implements amqp.Handler.
type CacheWorker struct {
	snapshot Snapshot
}

var _ amqp.Handler = (*CacheWorker)(nil)

func NewCacheWorker(snapshot Snapshot) *CacheWorker {
	return &CacheWorker{snapshot: snapshot}
}

// HandleCategoryEvent reloads the snapshot from the store.
// A failed reload is returned so the message is requeued.
func (w *CacheWorker) HandleCategoryEvent(ctx context.Context, e *amqp.CategoryEvent) error {
	slog.InfoContext(ctx, "Processing category event",
		"kind", e.Kind,
		"category_id", e.CategoryID,
		"timestamp", e.Timestamp)

	n, err := w.snapshot.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm suggestion cache: %w", err)
	}

	slog.InfoContext(ctx, "Suggestion cache refreshed", "kind", e.Kind, "examples", n)
	return nil
}

// HandleTransactionEvent only logs; transactions do not feed suggestions.
func (w *CacheWorker) HandleTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Transaction event received",
		"kind", e.Kind,
		"transaction_id", e.TransactionID,
		"category_id", e.CategoryID,
		"amount_cents", e.AmountCents)
	return nil
}

// StartupWarm loads the snapshot once before consuming, so a worker
// restart does not leave the cache cold.
func (w *CacheWorker) StartupWarm(ctx context.Context) error {
	n, err := w.snapshot.Warm(ctx)
	if err != nil {
		return fmt.Errorf("startup warm: %w", err)
	}
	slog.InfoContext(ctx, "Suggestion cache warmed on startup", "examples", n)
	return nil
}

// PeriodicRefresh re-warms the snapshot every interval until ctx is done.
// It covers events lost while the broker was unreachable.
func (w *CacheWorker) PeriodicRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.snapshot.Warm(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic cache refresh failed", "error", err)
			}
		}
	}
}
