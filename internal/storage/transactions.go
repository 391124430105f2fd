package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"expenses/internal/core"
)

const transactionSelect = `
	SELECT t.id, t.description, t.amount_cents, t.category_id, c.name, c.color,
	       t.subcategory_id, s.name, t.date, t.notes, t.created_at, t.updated_at
	FROM transactions t
	JOIN categories c ON t.category_id = c.id
	LEFT JOIN subcategories s ON t.subcategory_id = s.id`

// ListTransactions returns one page of transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	f = f.Normalized()

	var (
		conditions []string
		args       []any
	)
	if f.Category != "" {
		conditions = append(conditions, "c.name = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conditions = append(conditions, "(t.description LIKE ? OR c.name LIKE ? OR s.name LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Month != "" {
		conditions = append(conditions, "substr(t.date, 1, 7) = ?")
		args = append(args, f.Month)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := core.TransactionPage{Limit: f.Limit, Offset: f.Offset}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		LEFT JOIN subcategories s ON t.subcategory_id = s.id`+where, args...).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}

	query := transactionSelect + where + ` ORDER BY t.date DESC, t.id DESC LIMIT ? OFFSET ?`
	page.Transactions, err = r.queryTransactions(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return page, err
	}
	return page, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, transactionSelect+` WHERE t.id = ?`, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (description, amount_cents, category_id, subcategory_id, date, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Description, t.Amount.Cents, t.CategoryID, nullInt64(t.SubcategoryID), t.Date.String(), nullString(t.Notes))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapConstraint(err, "transaction"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category_id", t.CategoryID,
		"date", t.Date.String())

	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, amount_cents = ?, category_id = ?, subcategory_id = ?, date = ?, notes = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		t.Description, t.Amount.Cents, t.CategoryID, nullInt64(t.SubcategoryID), t.Date.String(), nullString(t.Notes), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", mapConstraint(err, "transaction"))
	}
	if err := rowsAffected(res, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)); err != nil {
		return core.Transaction{}, err
	}

	return r.GetTransaction(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound))
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		subID                  sql.NullInt64
		subName, notes         sql.NullString
		date, created, updated string
	)
	err := s.Scan(&t.ID, &t.Description, &t.Amount.Cents, &t.CategoryID, &t.CategoryName, &t.CategoryColor,
		&subID, &subName, &date, &notes, &created, &updated)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.SubcategoryID = int64Ptr(subID)
	t.SubcategoryName = subName.String
	t.Notes = notes.String
	t.CreatedAt = parseTimestamp(created)
	t.UpdatedAt = parseTimestamp(updated)
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
	}
	return t, nil
}
