package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCategory(t *testing.T, repo *SQLiteRepository, name string, subs ...string) core.Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), core.Category{Name: name}, subs)
	require.NoError(t, err)
	return c
}

func mustTransaction(t *testing.T, repo *SQLiteRepository, desc string, cents int64, categoryID int64, date string) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		CategoryID:  categoryID,
		Date:        d,
	})
	require.NoError(t, err)
	return tx
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	version, dirty, err := MigrationVersion(DSN(path))
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(DSN(path)))
}

func TestCreateCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "  Food ", "Groceries", "Restaurants", "Groceries", " ")
	assert.Equal(t, "Food", c.Name)
	assert.Equal(t, core.DefaultColor, c.Color)
	require.Len(t, c.Subcategories, 2)
	assert.Equal(t, "Groceries", c.Subcategories[0].Name)
	assert.Equal(t, "Restaurants", c.Subcategories[1].Name)
	assert.False(t, c.CreatedAt.IsZero())

	_, err := repo.CreateCategory(ctx, core.Category{Name: "Food"}, nil)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = repo.CreateCategory(ctx, core.Category{Name: "Bad", Color: "red"}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidColor)

	_, err = repo.CreateCategory(ctx, core.Category{Name: "  "}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestListCategoriesOrderedByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	mustCategory(t, repo, "Utilities", "Internet")
	mustCategory(t, repo, "Food", "Groceries")

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Food", cats[0].Name)
	assert.Equal(t, "Groceries", cats[0].Subcategories[0].Name)
	assert.Equal(t, "Utilities", cats[1].Name)
	assert.Equal(t, "Internet", cats[1].Subcategories[0].Name)
}

func TestUpdateCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Food")
	mustCategory(t, repo, "Shopping")

	c.Name = "Groceries"
	c.Color = "#FF0000"
	updated, err := repo.UpdateCategory(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Name)
	assert.Equal(t, "#FF0000", updated.Color)

	c.Name = "Shopping"
	_, err = repo.UpdateCategory(ctx, c)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = repo.UpdateCategory(ctx, core.Category{ID: 999, Name: "Nope", Color: core.DefaultColor})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCategoryCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Food", "Groceries")
	_, err := repo.CreateExample(ctx, core.Example{
		CategoryID:    c.ID,
		SubcategoryID: &c.Subcategories[0].ID,
		Description:   "REWE",
		Keywords:      []string{"rewe"},
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCategory(ctx, c.ID))

	_, err = repo.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	examples, err := repo.ListExamples(ctx)
	require.NoError(t, err)
	assert.Empty(t, examples)

	var subs int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM subcategories`).Scan(&subs))
	assert.Zero(t, subs)

	assert.ErrorIs(t, repo.DeleteCategory(ctx, c.ID), core.ErrNotFound)
}

func TestDeleteCategoryInUse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Food")
	mustTransaction(t, repo, "REWE", -1250, c.ID, "2024-03-01")
	mustTransaction(t, repo, "EDEKA", -800, c.ID, "2024-03-02")

	err := repo.DeleteCategory(ctx, c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCategoryInUse)

	var inUse *core.CategoryInUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, 2, inUse.TransactionCount)

	_, err = repo.GetCategory(ctx, c.ID)
	assert.NoError(t, err)
}

func TestSubcategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	other := mustCategory(t, repo, "Other")

	sub, err := repo.AddSubcategory(ctx, food.ID, " Bakery ")
	require.NoError(t, err)
	assert.Equal(t, "Bakery", sub.Name)
	assert.Equal(t, food.ID, sub.CategoryID)

	_, err = repo.AddSubcategory(ctx, food.ID, "Bakery")
	assert.ErrorIs(t, err, core.ErrConflict)

	// Same name under another category is allowed.
	_, err = repo.AddSubcategory(ctx, other.ID, "Bakery")
	assert.NoError(t, err)

	_, err = repo.AddSubcategory(ctx, 999, "X")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.AddSubcategory(ctx, food.ID, "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	assert.ErrorIs(t, repo.DeleteSubcategory(ctx, other.ID, sub.ID), core.ErrNotFound)
	require.NoError(t, repo.DeleteSubcategory(ctx, food.ID, sub.ID))
}

func TestDeleteSubcategorySetsNull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Food", "Groceries")
	subID := c.Subcategories[0].ID

	ex, err := repo.CreateExample(ctx, core.Example{
		CategoryID:    c.ID,
		SubcategoryID: &subID,
		Description:   "REWE",
		Keywords:      []string{"rewe"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", ex.SubcategoryName)

	d, _ := core.ParseDate("2024-01-10")
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Description:   "REWE Markt",
		Amount:        core.Money{Cents: -1999},
		CategoryID:    c.ID,
		SubcategoryID: &subID,
		Date:          d,
	})
	require.NoError(t, err)
	require.NotNil(t, tx.SubcategoryID)

	require.NoError(t, repo.DeleteSubcategory(ctx, c.ID, subID))

	tx, err = repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, tx.SubcategoryID)
	assert.Empty(t, tx.SubcategoryName)

	examples, err := repo.ListExamples(ctx)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Nil(t, examples[0].SubcategoryID)
	assert.Empty(t, examples[0].SubcategoryName)
}

func TestCreateExampleNormalizesKeywords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Transportation", "Public Transport")
	subID := c.Subcategories[0].ID

	ex, err := repo.CreateExample(ctx, core.Example{
		CategoryID:    c.ID,
		SubcategoryID: &subID,
		Description:   "Deutsche Bahn",
		DefaultNotes:  "Train ticket",
		Keywords:      []string{" DB ", "Bahn", "db", "Train"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "bahn", "train"}, ex.Keywords)
	assert.Equal(t, "Transportation", ex.CategoryName)
	assert.Equal(t, "Public Transport", ex.SubcategoryName)
	assert.Equal(t, "Train ticket", ex.DefaultNotes)

	var raw string
	require.NoError(t, repo.db.QueryRow(`SELECT keywords FROM category_examples WHERE id = ?`, ex.ID).Scan(&raw))
	assert.JSONEq(t, `["db","bahn","train"]`, raw)

	noKeywords, err := repo.CreateExample(ctx, core.Example{CategoryID: c.ID, Description: "Taxi"})
	require.NoError(t, err)
	assert.NotNil(t, noKeywords.Keywords)
	assert.Empty(t, noKeywords.Keywords)
}

func TestCreateExampleRejects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food", "Groceries")
	other := mustCategory(t, repo, "Other", "Misc")

	tests := []struct {
		name    string
		example core.Example
		want    error
	}{
		{"blank keyword", core.Example{CategoryID: food.ID, Description: "X", Keywords: []string{"ok", " "}}, core.ErrEmptyKeyword},
		{"empty description", core.Example{CategoryID: food.ID}, core.ErrEmptyDescription},
		{"unknown category", core.Example{CategoryID: 999, Description: "X"}, core.ErrNotFound},
		{"foreign subcategory", core.Example{CategoryID: food.ID, SubcategoryID: &other.Subcategories[0].ID, Description: "X"}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateExample(ctx, tt.example)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListExamplesOrderedByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	shop := mustCategory(t, repo, "Shopping")
	food := mustCategory(t, repo, "Food")

	for _, e := range []core.Example{
		{CategoryID: food.ID, Description: "Zeta", Keywords: []string{"z"}},
		{CategoryID: shop.ID, Description: "Alpha", Keywords: []string{"a"}},
		{CategoryID: food.ID, Description: "Beta", Keywords: []string{"b"}},
	} {
		_, err := repo.CreateExample(ctx, e)
		require.NoError(t, err)
	}

	all, err := repo.ListExamples(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Zeta", "Alpha", "Beta"}, []string{all[0].Description, all[1].Description, all[2].Description})
	assert.Equal(t, "Shopping", all[1].CategoryName)

	byCategory, err := repo.ListExamplesByCategory(ctx, food.ID)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, "Beta", byCategory[0].Description)
	assert.Equal(t, "Zeta", byCategory[1].Description)

	_, err = repo.ListExamplesByCategory(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMalformedKeywords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := mustCategory(t, repo, "Food")
	ex, err := repo.CreateExample(ctx, core.Example{CategoryID: c.ID, Description: "X", Keywords: []string{"x"}})
	require.NoError(t, err)

	_, err = repo.db.Exec(`UPDATE category_examples SET keywords = '["ok",""]' WHERE id = ?`, ex.ID)
	require.NoError(t, err)
	_, err = repo.ListExamples(ctx)
	assert.ErrorIs(t, err, ErrMalformedKeywords)

	_, err = repo.db.Exec(`UPDATE category_examples SET keywords = 'not json' WHERE id = ?`, ex.ID)
	require.NoError(t, err)
	_, err = repo.ListExamples(ctx)
	assert.ErrorIs(t, err, ErrMalformedKeywords)
}

func TestDeleteExample(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	other := mustCategory(t, repo, "Other")
	ex, err := repo.CreateExample(ctx, core.Example{CategoryID: food.ID, Description: "X"})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteExample(ctx, other.ID, ex.ID), core.ErrNotFound)
	require.NoError(t, repo.DeleteExample(ctx, food.ID, ex.ID))
	assert.ErrorIs(t, repo.DeleteExample(ctx, food.ID, ex.ID), core.ErrNotFound)
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food", "Groceries")
	income := mustCategory(t, repo, "Income")

	tx := mustTransaction(t, repo, "  REWE  ", -4599, food.ID, "2024-02-15")
	assert.Equal(t, "REWE", tx.Description)
	assert.Equal(t, "Food", tx.CategoryName)
	assert.Equal(t, core.DefaultColor, tx.CategoryColor)
	assert.Equal(t, "2024-02-15", tx.Date.String())

	tx.CategoryID = income.ID
	tx.Amount = core.Money{Cents: 250000}
	tx.Description = "Salary"
	tx.Notes = "February"
	updated, err := repo.UpdateTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "Income", updated.CategoryName)
	assert.Equal(t, int64(250000), updated.Amount.Cents)
	assert.Equal(t, "February", updated.Notes)

	tx.ID = 999
	_, err = repo.UpdateTransaction(ctx, tx)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Description: "X", Amount: core.Money{Cents: -1}, CategoryID: 999, Date: core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Description: "X", Amount: core.Money{}, CategoryID: food.ID, Date: core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	require.NoError(t, repo.DeleteTransaction(ctx, updated.ID))
	_, err = repo.GetTransaction(ctx, updated.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, updated.ID), core.ErrNotFound)
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food", "Groceries")
	transport := mustCategory(t, repo, "Transportation")

	subID := food.Subcategories[0].ID
	_, err := repo.CreateTransaction(ctx, core.Transaction{
		Description: "Weekly shop", Amount: core.Money{Cents: -3000}, CategoryID: food.ID,
		SubcategoryID: &subID, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	mustTransaction(t, repo, "REWE", -1200, food.ID, "2024-03-10")
	mustTransaction(t, repo, "Shell", -6000, transport.ID, "2024-03-10")
	mustTransaction(t, repo, "Deutsche Bahn", -4990, transport.ID, "2024-04-01")

	tests := []struct {
		name   string
		filter core.TransactionFilter
		want   []string
		total  int
	}{
		{"all newest first", core.TransactionFilter{}, []string{"Deutsche Bahn", "Shell", "REWE", "Weekly shop"}, 4},
		{"All category", core.TransactionFilter{Category: "All"}, []string{"Deutsche Bahn", "Shell", "REWE", "Weekly shop"}, 4},
		{"category", core.TransactionFilter{Category: "Food"}, []string{"REWE", "Weekly shop"}, 2},
		{"month", core.TransactionFilter{Month: "2024-03"}, []string{"Shell", "REWE", "Weekly shop"}, 3},
		{"search description", core.TransactionFilter{Search: "bahn"}, []string{"Deutsche Bahn"}, 1},
		{"search category name", core.TransactionFilter{Search: "transport"}, []string{"Deutsche Bahn", "Shell"}, 2},
		{"search subcategory name", core.TransactionFilter{Search: "grocer"}, []string{"Weekly shop"}, 1},
		{"paged", core.TransactionFilter{Limit: 2, Offset: 1}, []string{"Shell", "REWE"}, 4},
		{"no match", core.TransactionFilter{Category: "Nope"}, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			got := []string{}
			for _, tx := range page.Transactions {
				got = append(got, tx.Description)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, page.Total)
		})
	}

	page, err := repo.ListTransactions(ctx, core.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Limit)
	assert.True(t, page.HasMore())
}

func TestReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	income := mustCategory(t, repo, "Income")
	transport := mustCategory(t, repo, "Transportation")

	mustTransaction(t, repo, "Salary", 300000, income.ID, "2024-01-31")
	mustTransaction(t, repo, "REWE", -5000, food.ID, "2024-01-10")
	mustTransaction(t, repo, "Shell", -7000, transport.ID, "2024-02-03")
	mustTransaction(t, repo, "EDEKA", -2500, food.ID, "2024-02-12")
	mustTransaction(t, repo, "Old", -100, food.ID, "2023-12-30")

	monthly, err := repo.MonthlyTotals(ctx, core.ReportPeriod{Year: 2024})
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-01", monthly[0].Month)
	assert.Equal(t, int64(300000), monthly[0].Income.Cents)
	assert.Equal(t, int64(5000), monthly[0].Expenses.Cents)
	assert.Equal(t, int64(295000), monthly[0].Net().Cents)
	assert.Equal(t, 2, monthly[0].TransactionCount)
	assert.Equal(t, "2024-02", monthly[1].Month)
	assert.Equal(t, int64(9500), monthly[1].Expenses.Cents)

	feb, err := repo.CategoryBreakdown(ctx, core.CategoryQuery{Period: core.ReportPeriod{Year: 2024, Month: 2}})
	require.NoError(t, err)
	require.Len(t, feb, 2)
	assert.Equal(t, "Transportation", feb[0].Name)
	assert.Equal(t, int64(7000), feb[0].Total.Cents)
	assert.Equal(t, "Food", feb[1].Name)
	assert.Equal(t, 1, feb[1].TransactionCount)

	year, err := repo.CategoryBreakdown(ctx, core.CategoryQuery{Period: core.ReportPeriod{Year: 2024}})
	require.NoError(t, err)
	require.Len(t, year, 3)
	assert.Equal(t, "Income", year[0].Name)
	assert.Equal(t, "Food", year[1].Name)
	assert.Equal(t, int64(7500), year[1].Total.Cents)

	spending, err := repo.CategoryBreakdown(ctx, core.CategoryQuery{
		Period:       core.ReportPeriod{Year: 2024},
		ExpensesOnly: true,
		Limit:        1,
	})
	require.NoError(t, err)
	require.Len(t, spending, 1)
	assert.Equal(t, "Food", spending[0].Name)
	assert.Equal(t, int64(7500), spending[0].Total.Cents)

	none, err := repo.MonthlyTotals(ctx, core.ReportPeriod{Year: 2020})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCategoryBreakdownSumsAbsoluteAmounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	mustTransaction(t, repo, "REWE", -10000, food.ID, "2024-03-01")
	mustTransaction(t, repo, "REWE refund", 10000, food.ID, "2024-03-02")

	got, err := repo.CategoryBreakdown(ctx, core.CategoryQuery{Period: core.ReportPeriod{Year: 2024, Month: 3}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20000), got[0].Total.Cents)
	assert.Equal(t, 2, got[0].TransactionCount)
}

func TestTrends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	income := mustCategory(t, repo, "Income")
	mustTransaction(t, repo, "Old", -100, food.ID, "2023-01-01")
	mustTransaction(t, repo, "Salary", 300000, income.ID, "2024-01-31")
	mustTransaction(t, repo, "REWE", -5000, food.ID, "2024-01-01")
	mustTransaction(t, repo, "EDEKA", -2500, food.ID, "2024-02-12")

	months, err := repo.Trends(ctx, core.TrendMonth, 2)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-01", months[0].Group)
	assert.Equal(t, int64(300000), months[0].Income.Cents)
	assert.Equal(t, int64(5000), months[0].Expenses.Cents)
	assert.Equal(t, 2, months[0].TransactionCount)
	assert.Equal(t, "2024-02", months[1].Group)

	years, err := repo.Trends(ctx, core.TrendYear, 12)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, "2023", years[0].Group)
	assert.Equal(t, "2024", years[1].Group)

	weeks, err := repo.Trends(ctx, core.TrendWeek, 12)
	require.NoError(t, err)
	groups := []string{}
	for _, w := range weeks {
		groups = append(groups, w.Group)
	}
	assert.Equal(t, []string{"2023-00", "2024-01", "2024-05", "2024-07"}, groups)
}
