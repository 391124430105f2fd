package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"expenses/internal/core"
)

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, created_at, updated_at
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	index := make(map[int64]int)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	subs, err := r.querySubcategories(ctx, `
		SELECT id, category_id, name, created_at
		FROM subcategories
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if i, ok := index[s.CategoryID]; ok {
			categories[i].Subcategories = append(categories[i].Subcategories, s)
		}
	}

	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at, updated_at
		FROM categories
		WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}

	c.Subcategories, err = r.querySubcategories(ctx, `
		SELECT id, category_id, name, created_at
		FROM subcategories
		WHERE category_id = ?
		ORDER BY name`, id)
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category, subcategories []string) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Color == "" {
		c.Color = core.DefaultColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO categories (name, color) VALUES (?, ?)`, c.Name, c.Color)
		if err != nil {
			return mapConstraint(fmt.Errorf("insert category: %w", err), "category "+c.Name)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("category id: %w", err)
		}

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
			if _, err := tx.ExecContext(ctx, `INSERT INTO subcategories (category_id, name) VALUES (?, ?)`, id, name); err != nil {
				return mapConstraint(fmt.Errorf("insert subcategory: %w", err), "subcategory "+name)
			}
		}
		return nil
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite",
		"id", id,
		"name", c.Name,
		"subcategories", len(subcategories))

	return r.GetCategory(ctx, id)
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, color = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, c.Name, c.Color, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", mapConstraint(err, "category "+c.Name))
	}
	if err := rowsAffected(res, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)); err != nil {
		return core.Category{}, err
	}

	return r.GetCategory(ctx, c.ID)
}

// DeleteCategory removes a category together with its subcategories and
// examples. Categories still referenced by transactions are refused.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	count, err := r.CountTransactionsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &core.CategoryInUseError{CategoryID: id, TransactionCount: count}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("category %d: %w", id, core.ErrNotFound))
}

func (r *SQLiteRepository) AddSubcategory(ctx context.Context, categoryID int64, name string) (core.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Subcategory{}, core.ErrEmptyName
	}
	if err := r.categoryExists(ctx, categoryID); err != nil {
		return core.Subcategory{}, err
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO subcategories (category_id, name) VALUES (?, ?)`, categoryID, name)
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("add subcategory: %w", mapConstraint(err, "subcategory "+name))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("subcategory id: %w", err)
	}

	subs, err := r.querySubcategories(ctx, `
		SELECT id, category_id, name, created_at
		FROM subcategories
		WHERE id = ?`, id)
	if err != nil {
		return core.Subcategory{}, err
	}
	if len(subs) == 0 {
		return core.Subcategory{}, fmt.Errorf("subcategory %d: %w", id, core.ErrNotFound)
	}
	return subs[0], nil
}

// DeleteSubcategory removes a subcategory. Transactions and examples that
// referenced it keep existing with an empty subcategory.
func (r *SQLiteRepository) DeleteSubcategory(ctx context.Context, categoryID, subcategoryID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ? AND category_id = ?`, subcategoryID, categoryID)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("subcategory %d: %w", subcategoryID, core.ErrNotFound))
}

func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) categoryExists(ctx context.Context, id int64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

// subcategoryBelongs checks that subcategoryID is owned by categoryID.
func (r *SQLiteRepository) subcategoryBelongs(ctx context.Context, categoryID, subcategoryID int64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM subcategories WHERE id = ? AND category_id = ?`, subcategoryID, categoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subcategory %d in category %d: %w", subcategoryID, categoryID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup subcategory: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) querySubcategories(ctx context.Context, query string, args ...any) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var subs []core.Subcategory
	for rows.Next() {
		var (
			s       core.Subcategory
			created string
		)
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &created); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		s.CreatedAt = parseTimestamp(created)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subcategories: %w", err)
	}
	return subs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c                core.Category
		created, updated string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Color, &created, &updated); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = parseTimestamp(created)
	c.UpdatedAt = parseTimestamp(updated)
	return c, nil
}
