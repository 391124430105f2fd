package http

import (
	"time"

	"expenses/internal/core"
	"expenses/internal/services"
)

// JSON shapes of the API. Amounts are decimal strings such as "-12.34".
type (
	subcategoryJSON struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	categoryJSON struct {
		ID            int64             `json:"id"`
		Name          string            `json:"name"`
		Color         string            `json:"color"`
		Subcategories []subcategoryJSON `json:"subcategories"`
		CreatedAt     time.Time         `json:"createdAt"`
		UpdatedAt     time.Time         `json:"updatedAt"`
	}

	categoryDetailJSON struct {
		categoryJSON
		Examples []exampleJSON `json:"examples"`
	}

	exampleJSON struct {
		ID              int64    `json:"id"`
		CategoryID      int64    `json:"categoryId"`
		CategoryName    string   `json:"categoryName"`
		SubcategoryID   *int64   `json:"subcategoryId"`
		SubcategoryName string   `json:"subcategoryName,omitempty"`
		Description     string   `json:"description"`
		DefaultNotes    string   `json:"defaultNotes,omitempty"`
		Keywords        []string `json:"keywords"`
	}

	transactionJSON struct {
		ID            int64     `json:"id"`
		Description   string    `json:"description"`
		Amount        string    `json:"amount"`
		Date          string    `json:"date"`
		Notes         string    `json:"notes"`
		CategoryID    int64     `json:"categoryId"`
		Category      string    `json:"category"`
		CategoryColor string    `json:"categoryColor"`
		SubcategoryID *int64    `json:"subcategoryId"`
		Subcategory   string    `json:"subcategory,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	paginationJSON struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"hasMore"`
	}

	transactionPageJSON struct {
		Transactions []transactionJSON `json:"transactions"`
		Pagination   paginationJSON    `json:"pagination"`
	}

	suggestionJSON struct {
		CategoryID      int64  `json:"categoryId"`
		CategoryName    string `json:"categoryName"`
		SubcategoryID   *int64 `json:"subcategoryId,omitempty"`
		SubcategoryName string `json:"subcategoryName,omitempty"`
		DefaultNotes    string `json:"defaultNotes,omitempty"`
		Confidence      int    `json:"confidence"`
	}

	suggestionsJSON struct {
		Suggestions []suggestionJSON `json:"suggestions"`
	}

	monthlyJSON struct {
		Month            string  `json:"month"`
		Income           string  `json:"income"`
		Expenses         string  `json:"expenses"`
		Net              string  `json:"net"`
		SavingsRate      float64 `json:"savingsRate"`
		TransactionCount int     `json:"transactionCount"`
	}

	categoryTotalJSON struct {
		CategoryID       int64   `json:"categoryId"`
		Category         string  `json:"category"`
		Color            string  `json:"color"`
		TotalAmount      string  `json:"totalAmount"`
		AvgAmount        string  `json:"avgAmount"`
		TransactionCount int     `json:"transactionCount"`
		Percentage       float64 `json:"percentage"`
	}

	categoryBreakdownJSON struct {
		Categories []categoryTotalJSON `json:"categories"`
		TotalSpent string              `json:"totalSpent"`
		Period     string              `json:"period"`
	}

	trendPointJSON struct {
		DateGroup        string `json:"dateGroup"`
		Income           string `json:"income"`
		Expenses         string `json:"expenses"`
		Net              string `json:"net"`
		TransactionCount int    `json:"transactionCount"`
	}

	trendsJSON struct {
		Trends []trendPointJSON `json:"trends"`
		Period string           `json:"period"`
		Limit  int              `json:"limit"`
	}

	topCategoryJSON struct {
		CategoryID  int64  `json:"categoryId"`
		Category    string `json:"category"`
		Color       string `json:"color"`
		TotalAmount string `json:"totalAmount"`
	}

	dashboardJSON struct {
		Period             string            `json:"period"`
		Monthly            monthlyJSON       `json:"monthly"`
		CategoryCount      int               `json:"categoryCount"`
		RecentTransactions []transactionJSON `json:"recentTransactions"`
		TopCategories      []topCategoryJSON `json:"topCategories"`
	}
)

func toCategoryJSON(c core.Category) categoryJSON {
	subs := make([]subcategoryJSON, 0, len(c.Subcategories))
	for _, s := range c.Subcategories {
		subs = append(subs, subcategoryJSON{ID: s.ID, Name: s.Name})
	}
	return categoryJSON{
		ID:            c.ID,
		Name:          c.Name,
		Color:         c.Color,
		Subcategories: subs,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toCategoriesJSON(cats []core.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryJSON(c))
	}
	return out
}

func toCategoryDetailJSON(d services.CategoryDetail) categoryDetailJSON {
	return categoryDetailJSON{
		categoryJSON: toCategoryJSON(d.Category),
		Examples:     toExamplesJSON(d.Examples),
	}
}

func toExampleJSON(e core.Example) exampleJSON {
	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return exampleJSON{
		ID:              e.ID,
		CategoryID:      e.CategoryID,
		CategoryName:    e.CategoryName,
		SubcategoryID:   e.SubcategoryID,
		SubcategoryName: e.SubcategoryName,
		Description:     e.Description,
		DefaultNotes:    e.DefaultNotes,
		Keywords:        keywords,
	}
}

func toExamplesJSON(examples []core.Example) []exampleJSON {
	out := make([]exampleJSON, 0, len(examples))
	for _, e := range examples {
		out = append(out, toExampleJSON(e))
	}
	return out
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            t.ID,
		Description:   t.Description,
		Amount:        t.Amount.String(),
		Date:          t.Date.String(),
		Notes:         t.Notes,
		CategoryID:    t.CategoryID,
		Category:      t.CategoryName,
		CategoryColor: t.CategoryColor,
		SubcategoryID: t.SubcategoryID,
		Subcategory:   t.SubcategoryName,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

func toTransactionPageJSON(p core.TransactionPage) transactionPageJSON {
	return transactionPageJSON{
		Transactions: toTransactionsJSON(p.Transactions),
		Pagination: paginationJSON{
			Total:   p.Total,
			Limit:   p.Limit,
			Offset:  p.Offset,
			HasMore: p.HasMore(),
		},
	}
}

func toSuggestionsJSON(suggestions []core.Suggestion) suggestionsJSON {
	out := make([]suggestionJSON, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, suggestionJSON{
			CategoryID:      s.CategoryID,
			CategoryName:    s.CategoryName,
			SubcategoryID:   s.SubcategoryID,
			SubcategoryName: s.SubcategoryName,
			DefaultNotes:    s.DefaultNotes,
			Confidence:      s.Confidence,
		})
	}
	return suggestionsJSON{Suggestions: out}
}

func toMonthlyJSON(m core.MonthlyTotal) monthlyJSON {
	return monthlyJSON{
		Month:            m.Month,
		Income:           m.Income.String(),
		Expenses:         m.Expenses.String(),
		Net:              m.Net().String(),
		SavingsRate:      m.SavingsRate(),
		TransactionCount: m.TransactionCount,
	}
}

func toMonthliesJSON(totals []core.MonthlyTotal) []monthlyJSON {
	out := make([]monthlyJSON, 0, len(totals))
	for _, m := range totals {
		out = append(out, toMonthlyJSON(m))
	}
	return out
}

func toCategoryBreakdownJSON(b core.CategoryBreakdown) categoryBreakdownJSON {
	out := make([]categoryTotalJSON, 0, len(b.Categories))
	for _, c := range b.Categories {
		out = append(out, categoryTotalJSON{
			CategoryID:       c.CategoryID,
			Category:         c.Name,
			Color:            c.Color,
			TotalAmount:      c.Total.String(),
			AvgAmount:        c.Average().String(),
			TransactionCount: c.TransactionCount,
			Percentage:       c.Percentage,
		})
	}
	return categoryBreakdownJSON{
		Categories: out,
		TotalSpent: b.TotalSpent.String(),
		Period:     b.Period.Key(),
	}
}

func toTrendsJSON(t core.Trend) trendsJSON {
	out := make([]trendPointJSON, 0, len(t.Points))
	for _, p := range t.Points {
		out = append(out, trendPointJSON{
			DateGroup:        p.Group,
			Income:           p.Income.String(),
			Expenses:         p.Expenses.String(),
			Net:              p.Net().String(),
			TransactionCount: p.TransactionCount,
		})
	}
	return trendsJSON{Trends: out, Period: string(t.Grouping), Limit: t.Limit}
}

func toTopCategoriesJSON(totals []core.CategoryTotal) []topCategoryJSON {
	out := make([]topCategoryJSON, 0, len(totals))
	for _, c := range totals {
		out = append(out, topCategoryJSON{
			CategoryID:  c.CategoryID,
			Category:    c.Name,
			Color:       c.Color,
			TotalAmount: c.Total.String(),
		})
	}
	return out
}

func toDashboardJSON(d core.Dashboard) dashboardJSON {
	return dashboardJSON{
		Period:             d.Period.Key(),
		Monthly:            toMonthlyJSON(d.Totals),
		CategoryCount:      d.CategoryCount,
		RecentTransactions: toTransactionsJSON(d.Recent),
		TopCategories:      toTopCategoriesJSON(d.TopCategories),
	}
}
