// Package services orchestrates store writes, suggestion cache
// invalidation and event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/ports"
)

// Publisher sends change events. A nil Publisher disables publishing.
type Publisher interface {
	PublishCategoryEvent(ctx context.Context, e *amqp.CategoryEvent) error
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
	Close() error
}

// Invalidator drops cached suggestion data. A nil Invalidator means no
// cache is in use. A failed invalidation must leave the cache serving
// fresh data, so callers only log the error.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Services bundles the application services sharing one store.
type Services struct {
	Categories   *CategoryService
	Transactions *TransactionService
	Reports      *ReportService

	store     ports.Store
	publisher Publisher
}

func New(store ports.Store, cache Invalidator, publisher Publisher) *Services {
	return &Services{
		Categories:   NewCategoryService(store, cache, publisher),
		Transactions: NewTransactionService(store, publisher),
		Reports:      NewReportService(store),
		store:        store,
		publisher:    publisher,
	}
}

// Close closes both storage and AMQP connections.
func (s *Services) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close services: %w", err)
	}
	return nil
}

func publishCategory(ctx context.Context, p Publisher, e *amqp.CategoryEvent) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "kind", e.Kind)
		return
	}
	// The write already committed; a lost event only delays worker cache refresh.
	if err := p.PublishCategoryEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish category event",
			"kind", e.Kind,
			"category_id", e.CategoryID,
			"error", err)
	}
}

func publishTransaction(ctx context.Context, p Publisher, e *amqp.TransactionEvent) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "kind", e.Kind)
		return
	}
	if err := p.PublishTransactionEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", e.Kind,
			"transaction_id", e.TransactionID,
			"error", err)
	}
}
