package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ports"
)

// CategoryRepository is the storage needed to manage categories and their
// suggestion examples.
type CategoryRepository interface {
	ports.CategoryStore
	ports.ExampleStore
}

// CategoryDetail is a category together with its examples.
type CategoryDetail struct {
	core.Category
	Examples []core.Example
}

// CategoryService manages categories, subcategories and examples. Every
// successful mutation invalidates the suggestion cache before returning.
type CategoryService struct {
	store     CategoryRepository
	cache     Invalidator
	publisher Publisher
}

func NewCategoryService(store CategoryRepository, cache Invalidator, publisher Publisher) *CategoryService {
	return &CategoryService{store: store, cache: cache, publisher: publisher}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (CategoryDetail, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}
	examples, err := s.store.ListExamplesByCategory(ctx, id)
	if err != nil {
		return CategoryDetail{}, fmt.Errorf("list examples: %w", err)
	}
	return CategoryDetail{Category: c, Examples: examples}, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category, subcategories []string) (core.Category, error) {
	created, err := s.store.CreateCategory(ctx, c, subcategories)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, amqp.NewCategoryEvent(amqp.KindCategoryCreated, created.ID))
	return created, nil
}

// Update renames or recolors a category. Empty fields keep their current
// value.
func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = current.Name
	}
	if c.Color == "" {
		c.Color = current.Color
	}

	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, amqp.NewCategoryEvent(amqp.KindCategoryUpdated, updated.ID))
	return updated, nil
}

// Delete removes a category with its subcategories and examples. It fails
// with *core.CategoryInUseError while transactions reference the category.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	n, err := s.store.CountTransactionsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &core.CategoryInUseError{CategoryID: id, TransactionCount: n}
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewCategoryEvent(amqp.KindCategoryDeleted, id))
	return nil
}

func (s *CategoryService) AddSubcategory(ctx context.Context, categoryID int64, name string) (core.Subcategory, error) {
	sub, err := s.store.AddSubcategory(ctx, categoryID, name)
	if err != nil {
		return core.Subcategory{}, err
	}
	ev := amqp.NewCategoryEvent(amqp.KindSubcategoryCreated, categoryID)
	ev.SubcategoryID = &sub.ID
	s.changed(ctx, ev)
	return sub, nil
}

func (s *CategoryService) DeleteSubcategory(ctx context.Context, categoryID, subcategoryID int64) error {
	if err := s.store.DeleteSubcategory(ctx, categoryID, subcategoryID); err != nil {
		return err
	}
	ev := amqp.NewCategoryEvent(amqp.KindSubcategoryDeleted, categoryID)
	ev.SubcategoryID = &subcategoryID
	s.changed(ctx, ev)
	return nil
}

func (s *CategoryService) Examples(ctx context.Context, categoryID int64) ([]core.Example, error) {
	return s.store.ListExamplesByCategory(ctx, categoryID)
}

func (s *CategoryService) AddExample(ctx context.Context, e core.Example) (core.Example, error) {
	created, err := s.store.CreateExample(ctx, e)
	if err != nil {
		return core.Example{}, err
	}
	ev := amqp.NewCategoryEvent(amqp.KindExampleCreated, created.CategoryID)
	ev.ExampleID = &created.ID
	s.changed(ctx, ev)
	return created, nil
}

func (s *CategoryService) DeleteExample(ctx context.Context, categoryID, exampleID int64) error {
	if err := s.store.DeleteExample(ctx, categoryID, exampleID); err != nil {
		return err
	}
	ev := amqp.NewCategoryEvent(amqp.KindExampleDeleted, categoryID)
	ev.ExampleID = &exampleID
	s.changed(ctx, ev)
	return nil
}

// changed runs after a committed mutation.
func (s *CategoryService) changed(ctx context.Context, e *amqp.CategoryEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "Suggestion cache invalidation failed, reading store until it recovers",
				"kind", e.Kind,
				"error", err)
		}
	}
	slog.InfoContext(ctx, "Category data changed", "kind", e.Kind, "category_id", e.CategoryID)
	publishCategory(ctx, s.publisher, e)
}
