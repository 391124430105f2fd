package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"expenses/internal/core"
)

const exampleSelect = `
	SELECT ce.id, ce.category_id, c.name, ce.subcategory_id, s.name,
	       ce.description, ce.default_notes, ce.keywords
	FROM category_examples ce
	JOIN categories c ON ce.category_id = c.id
	LEFT JOIN subcategories s ON ce.subcategory_id = s.id`

// ListExamples returns every example with its category and subcategory
// names resolved. Rows are ordered by example id so that equal-confidence
// suggestions rank deterministically.
func (r *SQLiteRepository) ListExamples(ctx context.Context) ([]core.Example, error) {
	return r.queryExamples(ctx, exampleSelect+` ORDER BY ce.id`)
}

func (r *SQLiteRepository) ListExamplesByCategory(ctx context.Context, categoryID int64) ([]core.Example, error) {
	if err := r.categoryExists(ctx, categoryID); err != nil {
		return nil, err
	}
	return r.queryExamples(ctx, exampleSelect+` WHERE ce.category_id = ? ORDER BY ce.description, ce.id`, categoryID)
}

func (r *SQLiteRepository) CreateExample(ctx context.Context, e core.Example) (core.Example, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Example{}, err
	}
	keywords, err := encodeKeywords(e.Keywords)
	if err != nil {
		return core.Example{}, err
	}
	if err := r.categoryExists(ctx, e.CategoryID); err != nil {
		return core.Example{}, err
	}
	if e.SubcategoryID != nil {
		if err := r.subcategoryBelongs(ctx, e.CategoryID, *e.SubcategoryID); err != nil {
			return core.Example{}, err
		}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO category_examples (category_id, description, subcategory_id, default_notes, keywords)
		VALUES (?, ?, ?, ?, ?)`,
		e.CategoryID, e.Description, nullInt64(e.SubcategoryID), nullString(e.DefaultNotes), keywords)
	if err != nil {
		return core.Example{}, fmt.Errorf("create example: %w", mapConstraint(err, "example "+e.Description))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Example{}, fmt.Errorf("example id: %w", err)
	}

	slog.InfoContext(ctx, "Category example saved to SQLite",
		"id", id,
		"category_id", e.CategoryID,
		"description", e.Description,
		"keywords", keywords)

	examples, err := r.queryExamples(ctx, exampleSelect+` WHERE ce.id = ?`, id)
	if err != nil {
		return core.Example{}, err
	}
	if len(examples) == 0 {
		return core.Example{}, fmt.Errorf("example %d: %w", id, core.ErrNotFound)
	}
	return examples[0], nil
}

func (r *SQLiteRepository) DeleteExample(ctx context.Context, categoryID, exampleID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_examples WHERE id = ? AND category_id = ?`, exampleID, categoryID)
	if err != nil {
		return fmt.Errorf("delete example: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("example %d: %w", exampleID, core.ErrNotFound))
}

func (r *SQLiteRepository) queryExamples(ctx context.Context, query string, args ...any) ([]core.Example, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list examples: %w", err)
	}
	defer rows.Close()

	examples := []core.Example{}
	for rows.Next() {
		var (
			e        core.Example
			subID    sql.NullInt64
			subName  sql.NullString
			notes    sql.NullString
			keywords string
		)
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &subID, &subName,
			&e.Description, &notes, &keywords); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		e.SubcategoryID = int64Ptr(subID)
		e.SubcategoryName = subName.String
		e.DefaultNotes = notes.String
		if e.Keywords, err = decodeKeywords(keywords); err != nil {
			return nil, fmt.Errorf("example %d: %w", e.ID, err)
		}
		examples = append(examples, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return examples, nil
}

// encodeKeywords normalizes keywords and serializes them for the keywords
// column.
func encodeKeywords(keywords []string) (string, error) {
	normalized, err := core.NormalizeKeywords(keywords)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return string(b), nil
}

// decodeKeywords parses the keywords column. Blank entries are treated as
// corrupt data since an empty keyword would match every description.
func decodeKeywords(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKeywords, err)
	}
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: blank keyword", ErrMalformedKeywords)
		}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords, nil
}
