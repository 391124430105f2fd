package storage

import (
	"context"
	"fmt"
	"slices"

	"expenses/internal/core"
)

func periodFilter(column string, p core.ReportPeriod) (string, []any) {
	if p.Month > 0 {
		return fmt.Sprintf(" WHERE substr(%s, 1, 7) = ?", column), []any{fmt.Sprintf("%04d-%02d", p.Year, p.Month)}
	}
	return fmt.Sprintf(" WHERE substr(%s, 1, 4) = ?", column), []any{fmt.Sprintf("%04d", p.Year)}
}

// MonthlyTotals sums income and expenses per month within the period.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, p core.ReportPeriod) ([]core.MonthlyTotal, error) {
	where, args := periodFilter("date", p)
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month,
		       COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0),
		       COUNT(*)
		FROM transactions`+where+`
		GROUP BY month
		ORDER BY month`, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	totals := []core.MonthlyTotal{}
	for rows.Next() {
		var m core.MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Income.Cents, &m.Expenses.Cents, &m.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		totals = append(totals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly totals: %w", err)
	}
	return totals, nil
}

// CategoryBreakdown sums absolute amounts per category within the query's
// period, largest totals first.
func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, q core.CategoryQuery) ([]core.CategoryTotal, error) {
	where, args := periodFilter("t.date", q.Period)
	if q.ExpensesOnly {
		where += " AND t.amount_cents < 0"
	}
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.color, COALESCE(SUM(ABS(t.amount_cents)), 0) AS total, COUNT(t.id)
		FROM transactions t
		JOIN categories c ON t.category_id = c.id`+where+`
		GROUP BY c.id, c.name, c.color
		ORDER BY total DESC, c.name`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var c core.CategoryTotal
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Color, &c.Total.Cents, &c.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// Trends sums income and expenses for the latest limit buckets of g.
func (r *SQLiteRepository) Trends(ctx context.Context, g core.TrendGrouping, limit int) ([]core.TrendPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime(?, date) AS bucket,
		       COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0),
		       COUNT(*)
		FROM transactions
		GROUP BY bucket
		ORDER BY bucket DESC
		LIMIT ?`, g.Layout(), limit)
	if err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	defer rows.Close()

	points := []core.TrendPoint{}
	for rows.Next() {
		var p core.TrendPoint
		if err := rows.Scan(&p.Group, &p.Income.Cents, &p.Expenses.Cents, &p.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend points: %w", err)
	}
	slices.Reverse(points)
	return points, nil
}
