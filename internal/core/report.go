package core

import (
	"fmt"
	"strings"
)

// MonthlyTotal aggregates transactions of one YYYY-MM month.
type MonthlyTotal struct {
	Month            string
	Income           Money
	Expenses         Money // absolute value of negative amounts
	TransactionCount int
}

// Net returns income minus expenses.
func (m MonthlyTotal) Net() Money {
	return Money{Cents: m.Income.Cents - m.Expenses.Cents}
}

// CategoryTotal aggregates the absolute amounts of one category's
// transactions, so income and spending both count towards the total.
type CategoryTotal struct {
	CategoryID       int64
	Name             string
	Color            string
	Total            Money
	TransactionCount int
	Percentage       float64 // share of the breakdown total, 0-100
}

// Average returns the mean absolute amount, rounded half up to the cent.
func (c CategoryTotal) Average() Money {
	if c.TransactionCount == 0 {
		return Money{}
	}
	n := int64(c.TransactionCount)
	return Money{Cents: (2*c.Total.Cents + n) / (2 * n)}
}

// CategoryQuery selects what a category breakdown aggregates.
type CategoryQuery struct {
	Period       ReportPeriod
	ExpensesOnly bool // only negative amounts
	Limit        int  // 0 for every category
}

// CategoryBreakdown is the per-category report of a period, largest totals
// first.
type CategoryBreakdown struct {
	Period     ReportPeriod
	Categories []CategoryTotal
	TotalSpent Money
}

// NewCategoryBreakdown sums the totals and fills each category's
// percentage of that sum.
func NewCategoryBreakdown(p ReportPeriod, totals []CategoryTotal) CategoryBreakdown {
	var sum int64
	for _, t := range totals {
		sum += t.Total.Cents
	}
	for i := range totals {
		totals[i].Percentage = 0
		if sum > 0 {
			totals[i].Percentage = float64(totals[i].Total.Cents) / float64(sum) * 100
		}
	}
	return CategoryBreakdown{Period: p, Categories: totals, TotalSpent: Money{Cents: sum}}
}

// TrendGrouping is the calendar bucket of a spending trend.
type TrendGrouping string

const (
	TrendDay   TrendGrouping = "day"
	TrendWeek  TrendGrouping = "week"
	TrendMonth TrendGrouping = "month"
	TrendYear  TrendGrouping = "year"
)

const (
	DefaultTrendLimit = 12
	MaxTrendLimit     = 1000
)

// ParseTrendGrouping maps a query value to a grouping. Unknown values fall
// back to months.
func ParseTrendGrouping(s string) TrendGrouping {
	switch g := TrendGrouping(strings.ToLower(strings.TrimSpace(s))); g {
	case TrendDay, TrendWeek, TrendMonth, TrendYear:
		return g
	default:
		return TrendMonth
	}
}

// Layout returns the SQLite strftime format producing the bucket key.
func (g TrendGrouping) Layout() string {
	switch g {
	case TrendDay:
		return "%Y-%m-%d"
	case TrendWeek:
		return "%Y-%W"
	case TrendYear:
		return "%Y"
	default:
		return "%Y-%m"
	}
}

// Key returns the bucket of d, matching Layout. Weeks start on Monday and
// days before the first Monday of the year fall in week 00.
func (g TrendGrouping) Key(d Date) string {
	switch g {
	case TrendDay:
		return d.Format("2006-01-02")
	case TrendWeek:
		monday := (int(d.Weekday()) + 6) % 7
		week := (d.YearDay() - 1 + 7 - monday) / 7
		return fmt.Sprintf("%04d-%02d", d.Year(), week)
	case TrendYear:
		return d.Format("2006")
	default:
		return d.Format("2006-01")
	}
}

// TrendPoint aggregates the transactions of one trend bucket.
type TrendPoint struct {
	Group            string
	Income           Money
	Expenses         Money // absolute value of negative amounts
	TransactionCount int
}

// Net returns income minus expenses.
func (t TrendPoint) Net() Money {
	return Money{Cents: t.Income.Cents - t.Expenses.Cents}
}

// Trend is the latest Limit buckets in chronological order.
type Trend struct {
	Grouping TrendGrouping
	Limit    int
	Points   []TrendPoint
}

// ReportPeriod selects a whole year, or a single month when Month is set.
type ReportPeriod struct {
	Year  int
	Month int // 1-12, 0 for the whole year
}

// Dashboard is the compact overview of the current month.
type Dashboard struct {
	Period        ReportPeriod
	Totals        MonthlyTotal
	TopCategories []CategoryTotal // spending only
	Recent        []Transaction
	CategoryCount int
}

// Key formats the period as YYYY or YYYY-MM.
func (p ReportPeriod) Key() string {
	if p.Month > 0 {
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	}
	return fmt.Sprintf("%04d", p.Year)
}

// Validate checks the year and optional month ranges.
func (p ReportPeriod) Validate() error {
	if p.Year < 1 || p.Year > 9999 || p.Month < 0 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

// SavingsRate returns net savings as a percentage of income, or 0 without
// income.
func (m MonthlyTotal) SavingsRate() float64 {
	if m.Income.Cents <= 0 {
		return 0
	}
	return float64(m.Net().Cents) / float64(m.Income.Cents) * 100
}
