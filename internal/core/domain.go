package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultColor is assigned to categories created without a color.
	DefaultColor = "#6B7280"

	// MaxDescriptionLength bounds transaction and example descriptions.
	MaxDescriptionLength = 200

	DefaultPageLimit = 50
	MaxPageLimit     = 500

	dateLayout = "2006-01-02"
)

type (
	Date struct {
		time.Time
	}

	// Money is a signed fixed-point amount in cents.
	// Positive values are income, negative values are expenses.
	Money struct {
		Cents int64
	}

	Category struct {
		ID            int64
		Name          string
		Color         string
		Subcategories []Subcategory
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	Subcategory struct {
		ID         int64
		CategoryID int64
		Name       string
		CreatedAt  time.Time
	}

	// Example is a stored vendor template used to suggest a category for a
	// new transaction. Category and subcategory names are denormalized so a
	// single read is enough to build suggestions.
	Example struct {
		ID              int64
		CategoryID      int64
		CategoryName    string
		SubcategoryID   *int64
		SubcategoryName string
		Description     string
		DefaultNotes    string
		Keywords        []string
	}

	Transaction struct {
		ID              int64
		Description     string
		Amount          Money
		CategoryID      int64
		CategoryName    string
		CategoryColor   string
		SubcategoryID   *int64
		SubcategoryName string
		Date            Date
		Notes           string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// Suggestion is a ranked candidate classification for a description.
	Suggestion struct {
		CategoryID      int64
		CategoryName    string
		SubcategoryID   *int64
		SubcategoryName string
		DefaultNotes    string
		Confidence      int
	}

	TransactionFilter struct {
		Category string // category name, "" or "All" for no filter
		Search   string
		Month    string // YYYY-MM
		Limit    int
		Offset   int
	}

	TransactionPage struct {
		Transactions []Transaction
		Total        int
		Limit        int
		Offset       int
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidColor       = errors.New("invalid color, expected #RRGGBB")
	ErrEmptyKeyword       = errors.New("empty keyword")
	ErrMissingCategory    = errors.New("missing category")
	ErrInvalidMonth       = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidPeriod      = errors.New("invalid report period")
	ErrInvalidTrendLimit  = errors.New("invalid limit, expected 1-1000")
	ErrForeignSubcategory = errors.New("subcategory does not belong to category")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsValidationError reports whether err is caused by invalid user input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionTooLong,
		ErrEmptyName, ErrInvalidColor, ErrEmptyKeyword, ErrMissingCategory, ErrInvalidMonth, ErrInvalidPeriod,
		ErrInvalidTrendLimit, ErrForeignSubcategory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsIncome reports whether the amount is positive.
func (m Money) IsIncome() bool {
	return m.Cents > 0
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (e Example) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if e.CategoryID <= 0 {
		return ErrMissingCategory
	}
	for _, k := range e.Keywords {
		if strings.TrimSpace(k) == "" {
			return ErrEmptyKeyword
		}
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return t.Date.Validate()
}

// Normalized applies paging defaults and bounds.
func (f TransactionFilter) Normalized() TransactionFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Category == "All" {
		f.Category = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// HasMore reports whether rows exist past the current page.
func (p TransactionPage) HasMore() bool {
	return p.Offset+p.Limit < p.Total
}

// NormalizeKeywords trims and lower-cases keywords, dropping duplicates
// while keeping the first occurrence order.
func NormalizeKeywords(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, ErrEmptyKeyword
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}
