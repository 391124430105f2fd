package ports

import (
	"context"

	"expenses/internal/core"
)

// Ports for outbound storage adapters.
type (
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		// CreateCategory stores the category and its initial subcategories atomically.
		CreateCategory(ctx context.Context, c core.Category, subcategories []string) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
		AddSubcategory(ctx context.Context, categoryID int64, name string) (core.Subcategory, error)
		DeleteSubcategory(ctx context.Context, categoryID, subcategoryID int64) error
		CountTransactionsByCategory(ctx context.Context, categoryID int64) (int, error)
	}

	// ExampleStore exposes the suggestion training data.
	ExampleStore interface {
		// ListExamples returns every example with category and subcategory
		// names resolved, in a stable order across calls.
		ListExamples(ctx context.Context) ([]core.Example, error)
		ListExamplesByCategory(ctx context.Context, categoryID int64) ([]core.Example, error)
		CreateExample(ctx context.Context, e core.Example) (core.Example, error)
		DeleteExample(ctx context.Context, categoryID, exampleID int64) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// ReportStore provides aggregated views over transactions.
	ReportStore interface {
		MonthlyTotals(ctx context.Context, p core.ReportPeriod) ([]core.MonthlyTotal, error)
		// CategoryBreakdown sums absolute amounts per category, largest first.
		CategoryBreakdown(ctx context.Context, q core.CategoryQuery) ([]core.CategoryTotal, error)
		// Trends returns the latest limit buckets in chronological order.
		Trends(ctx context.Context, g core.TrendGrouping, limit int) ([]core.TrendPoint, error)
	}

	Store interface {
		CategoryStore
		ExampleStore
		TransactionStore
		ReportStore
		Ping(ctx context.Context) error
		Close() error
	}
)
