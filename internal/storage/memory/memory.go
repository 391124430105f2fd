// Package memory provides a process-local ports.Store used for development
// and tests. It follows the SQLite repository semantics: cascading category
// deletes, subcategory references cleared on delete and identical ordering.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"expenses/internal/core"
)

type Store struct {
	mu sync.RWMutex

	nextID       int64
	categories   map[int64]core.Category
	subs         map[int64]core.Subcategory
	examples     []core.Example // ascending id
	transactions map[int64]core.Transaction

	now func() time.Time
}

func New() *Store {
	return &Store{
		categories:   make(map[int64]core.Category),
		subs:         make(map[int64]core.Subcategory),
		transactions: make(map[int64]core.Transaction),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Category, 0, len(s.categories))
	for id := range s.categories {
		out = append(out, s.categoryLocked(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.categories[id]; !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return s.categoryLocked(id), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category, subcategories []string) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Color == "" {
		c.Color = core.DefaultColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(c.Name, 0) {
		return core.Category{}, fmt.Errorf("category %s: %w", c.Name, core.ErrConflict)
	}
	now := s.now()
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Subcategories = nil
	s.categories[c.ID] = c

	seen := make(map[string]struct{})
	for _, name := range subcategories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sub := core.Subcategory{ID: s.id(), CategoryID: c.ID, Name: name, CreatedAt: now}
		s.subs[sub.ID] = sub
	}
	return s.categoryLocked(c.ID), nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.categories[c.ID]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	if s.nameTakenLocked(c.Name, c.ID) {
		return core.Category{}, fmt.Errorf("category %s: %w", c.Name, core.ErrConflict)
	}
	cur.Name = c.Name
	cur.Color = c.Color
	cur.UpdatedAt = s.now()
	s.categories[c.ID] = cur
	return s.categoryLocked(c.ID), nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.countLocked(id); n > 0 {
		return &core.CategoryInUseError{CategoryID: id, TransactionCount: n}
	}
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	delete(s.categories, id)
	for subID, sub := range s.subs {
		if sub.CategoryID == id {
			s.deleteSubLocked(subID)
		}
	}
	kept := s.examples[:0]
	for _, e := range s.examples {
		if e.CategoryID != id {
			kept = append(kept, e)
		}
	}
	s.examples = kept
	return nil
}

func (s *Store) AddSubcategory(_ context.Context, categoryID int64, name string) (core.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Subcategory{}, core.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[categoryID]; !ok {
		return core.Subcategory{}, fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	for _, sub := range s.subs {
		if sub.CategoryID == categoryID && sub.Name == name {
			return core.Subcategory{}, fmt.Errorf("subcategory %s: %w", name, core.ErrConflict)
		}
	}
	sub := core.Subcategory{ID: s.id(), CategoryID: categoryID, Name: name, CreatedAt: s.now()}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *Store) DeleteSubcategory(_ context.Context, categoryID, subcategoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subcategoryID]
	if !ok || sub.CategoryID != categoryID {
		return fmt.Errorf("subcategory %d: %w", subcategoryID, core.ErrNotFound)
	}
	s.deleteSubLocked(subcategoryID)
	return nil
}

func (s *Store) CountTransactionsByCategory(_ context.Context, categoryID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(categoryID), nil
}

// ListExamples returns examples in insertion order.
func (s *Store) ListExamples(_ context.Context) ([]core.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Example, 0, len(s.examples))
	for _, e := range s.examples {
		out = append(out, s.exampleLocked(e))
	}
	return out, nil
}

func (s *Store) ListExamplesByCategory(_ context.Context, categoryID int64) ([]core.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.categories[categoryID]; !ok {
		return nil, fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	out := []core.Example{}
	for _, e := range s.examples {
		if e.CategoryID == categoryID {
			out = append(out, s.exampleLocked(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (s *Store) CreateExample(_ context.Context, e core.Example) (core.Example, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Example{}, err
	}
	keywords, err := core.NormalizeKeywords(e.Keywords)
	if err != nil {
		return core.Example{}, err
	}
	e.Keywords = keywords
	e.DefaultNotes = strings.TrimSpace(e.DefaultNotes)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.Example{}, fmt.Errorf("category %d: %w", e.CategoryID, core.ErrNotFound)
	}
	if e.SubcategoryID != nil {
		if sub, ok := s.subs[*e.SubcategoryID]; !ok || sub.CategoryID != e.CategoryID {
			return core.Example{}, fmt.Errorf("subcategory %d in category %d: %w", *e.SubcategoryID, e.CategoryID, core.ErrNotFound)
		}
	}
	e.ID = s.id()
	e.SubcategoryID = cloneID(e.SubcategoryID)
	s.examples = append(s.examples, e)
	return s.exampleLocked(e), nil
}

func (s *Store) DeleteExample(_ context.Context, categoryID, exampleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.examples {
		if e.ID == exampleID && e.CategoryID == categoryID {
			s.examples = append(s.examples[:i], s.examples[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("example %d: %w", exampleID, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	f = f.Normalized()
	search := strings.ToLower(f.Search)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []core.Transaction{}
	for _, t := range s.transactions {
		t = s.transactionLocked(t)
		if f.Category != "" && t.CategoryName != f.Category {
			continue
		}
		if f.Month != "" && !strings.HasPrefix(t.Date.String(), f.Month) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Description), search) &&
			!strings.Contains(strings.ToLower(t.CategoryName), search) &&
			!strings.Contains(strings.ToLower(t.SubcategoryName), search) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date.Time) {
			return matched[i].Date.After(matched[j].Date.Time)
		}
		return matched[i].ID > matched[j].ID
	})

	page := core.TransactionPage{Total: len(matched), Limit: f.Limit, Offset: f.Offset}
	start := min(f.Offset, len(matched))
	end := min(start+f.Limit, len(matched))
	page.Transactions = matched[start:end]
	return page, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return s.transactionLocked(t), nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefsLocked(t); err != nil {
		return core.Transaction{}, err
	}
	now := s.now()
	t.ID = s.id()
	t.SubcategoryID = cloneID(t.SubcategoryID)
	t.Notes = strings.TrimSpace(t.Notes)
	t.CreatedAt, t.UpdatedAt = now, now
	s.transactions[t.ID] = t
	return s.transactionLocked(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[t.ID]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	if err := s.checkRefsLocked(t); err != nil {
		return core.Transaction{}, err
	}
	t.Notes = strings.TrimSpace(t.Notes)
	t.SubcategoryID = cloneID(t.SubcategoryID)
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.now()
	s.transactions[t.ID] = t
	return s.transactionLocked(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) MonthlyTotals(_ context.Context, p core.ReportPeriod) ([]core.MonthlyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMonth := make(map[string]*core.MonthlyTotal)
	for _, t := range s.transactions {
		if !inPeriod(t.Date, p) {
			continue
		}
		month := t.Date.Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &core.MonthlyTotal{Month: month}
			byMonth[month] = m
		}
		if t.Amount.IsIncome() {
			m.Income.Cents += t.Amount.Cents
		} else {
			m.Expenses.Cents -= t.Amount.Cents
		}
		m.TransactionCount++
	}

	out := make([]core.MonthlyTotal, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) CategoryBreakdown(_ context.Context, q core.CategoryQuery) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[int64]*core.CategoryTotal)
	for _, t := range s.transactions {
		if !inPeriod(t.Date, q.Period) || (q.ExpensesOnly && t.Amount.Cents >= 0) {
			continue
		}
		c, ok := byCategory[t.CategoryID]
		if !ok {
			cat := s.categories[t.CategoryID]
			c = &core.CategoryTotal{CategoryID: cat.ID, Name: cat.Name, Color: cat.Color}
			byCategory[t.CategoryID] = c
		}
		c.Total.Cents += t.Amount.Abs().Cents
		c.TransactionCount++
	}

	out := make([]core.CategoryTotal, 0, len(byCategory))
	for _, c := range byCategory {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Trends(_ context.Context, g core.TrendGrouping, limit int) ([]core.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byGroup := make(map[string]*core.TrendPoint)
	for _, t := range s.transactions {
		key := g.Key(t.Date)
		p, ok := byGroup[key]
		if !ok {
			p = &core.TrendPoint{Group: key}
			byGroup[key] = p
		}
		if t.Amount.IsIncome() {
			p.Income.Cents += t.Amount.Cents
		} else {
			p.Expenses.Cents -= t.Amount.Cents
		}
		p.TransactionCount++
	}

	out := make([]core.TrendPoint, 0, len(byGroup))
	for _, p := range byGroup {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func inPeriod(d core.Date, p core.ReportPeriod) bool {
	if d.Year() != p.Year {
		return false
	}
	return p.Month == 0 || int(d.Month()) == p.Month
}

func (s *Store) categoryLocked(id int64) core.Category {
	c := s.categories[id]
	c.Subcategories = nil
	for _, sub := range s.subs {
		if sub.CategoryID == id {
			c.Subcategories = append(c.Subcategories, sub)
		}
	}
	sort.Slice(c.Subcategories, func(i, j int) bool { return c.Subcategories[i].Name < c.Subcategories[j].Name })
	return c
}

func (s *Store) exampleLocked(e core.Example) core.Example {
	e.CategoryName = s.categories[e.CategoryID].Name
	e.SubcategoryID = cloneID(e.SubcategoryID)
	e.SubcategoryName = ""
	if e.SubcategoryID != nil {
		e.SubcategoryName = s.subs[*e.SubcategoryID].Name
	}
	e.Keywords = append([]string{}, e.Keywords...)
	return e
}

func (s *Store) transactionLocked(t core.Transaction) core.Transaction {
	cat := s.categories[t.CategoryID]
	t.CategoryName = cat.Name
	t.CategoryColor = cat.Color
	t.SubcategoryID = cloneID(t.SubcategoryID)
	t.SubcategoryName = ""
	if t.SubcategoryID != nil {
		t.SubcategoryName = s.subs[*t.SubcategoryID].Name
	}
	return t
}

func (s *Store) checkRefsLocked(t core.Transaction) error {
	if _, ok := s.categories[t.CategoryID]; !ok {
		return fmt.Errorf("transaction: referenced category %d: %w", t.CategoryID, core.ErrNotFound)
	}
	if t.SubcategoryID != nil {
		if _, ok := s.subs[*t.SubcategoryID]; !ok {
			return fmt.Errorf("transaction: referenced subcategory %d: %w", *t.SubcategoryID, core.ErrNotFound)
		}
	}
	return nil
}

// deleteSubLocked removes a subcategory and clears references to it.
func (s *Store) deleteSubLocked(id int64) {
	delete(s.subs, id)
	for i, e := range s.examples {
		if e.SubcategoryID != nil && *e.SubcategoryID == id {
			s.examples[i].SubcategoryID = nil
		}
	}
	for tid, t := range s.transactions {
		if t.SubcategoryID != nil && *t.SubcategoryID == id {
			t.SubcategoryID = nil
			s.transactions[tid] = t
		}
	}
}

func (s *Store) nameTakenLocked(name string, except int64) bool {
	for id, c := range s.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) countLocked(categoryID int64) int {
	n := 0
	for _, t := range s.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
