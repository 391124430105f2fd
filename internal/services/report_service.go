package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/core"
	"expenses/internal/ports"
)

const (
	// RecentTransactions is the number of transactions shown on the dashboard.
	RecentTransactions = 5
	// TopCategories is the number of spending categories shown on the dashboard.
	TopCategories = 5
)

// ReportRepository is the storage needed to build reports.
type ReportRepository interface {
	ports.ReportStore
	ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type ReportService struct {
	store ReportRepository
	now   func() time.Time
}

func NewReportService(store ReportRepository) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

func (s *ReportService) Monthly(ctx context.Context, p core.ReportPeriod) ([]core.MonthlyTotal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	totals, err := s.store.MonthlyTotals(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}
	return totals, nil
}

// Categories breaks the period down by category over absolute amounts.
func (s *ReportService) Categories(ctx context.Context, p core.ReportPeriod) (core.CategoryBreakdown, error) {
	if err := p.Validate(); err != nil {
		return core.CategoryBreakdown{}, err
	}
	totals, err := s.store.CategoryBreakdown(ctx, core.CategoryQuery{Period: p})
	if err != nil {
		return core.CategoryBreakdown{}, fmt.Errorf("category report: %w", err)
	}
	return core.NewCategoryBreakdown(p, totals), nil
}

// Trends returns the latest limit buckets of g. A limit outside
// 1..MaxTrendLimit is rejected.
func (s *ReportService) Trends(ctx context.Context, g core.TrendGrouping, limit int) (core.Trend, error) {
	if limit < 1 || limit > core.MaxTrendLimit {
		return core.Trend{}, core.ErrInvalidTrendLimit
	}
	points, err := s.store.Trends(ctx, g, limit)
	if err != nil {
		return core.Trend{}, fmt.Errorf("trends report: %w", err)
	}
	return core.Trend{Grouping: g, Limit: limit, Points: points}, nil
}

// CurrentPeriod returns the current calendar month.
func (s *ReportService) CurrentPeriod() core.ReportPeriod {
	now := s.now()
	return core.ReportPeriod{Year: now.Year(), Month: int(now.Month())}
}

// Dashboard builds the current month overview, running its queries
// concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (core.Dashboard, error) {
	d := core.Dashboard{Period: s.CurrentPeriod()}
	d.Totals.Month = d.Period.Key()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.store.MonthlyTotals(gctx, d.Period)
		if err != nil {
			return fmt.Errorf("monthly totals: %w", err)
		}
		if len(totals) > 0 {
			d.Totals = totals[0]
		}
		return nil
	})
	g.Go(func() error {
		top, err := s.store.CategoryBreakdown(gctx, core.CategoryQuery{
			Period:       d.Period,
			ExpensesOnly: true,
			Limit:        TopCategories,
		})
		if err != nil {
			return fmt.Errorf("top categories: %w", err)
		}
		d.TopCategories = top
		return nil
	})
	g.Go(func() error {
		page, err := s.store.ListTransactions(gctx, core.TransactionFilter{Limit: RecentTransactions})
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		d.Recent = page.Transactions
		return nil
	})
	g.Go(func() error {
		cats, err := s.store.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		d.CategoryCount = len(cats)
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}
