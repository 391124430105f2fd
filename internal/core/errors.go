package core

import (
	"errors"
	"fmt"
)

// Store errors shared by every backend.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrCategoryInUse = errors.New("category has transactions")
)

// CategoryInUseError is returned when deleting a category that is still
// referenced by transactions.
type CategoryInUseError struct {
	CategoryID       int64
	TransactionCount int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %d is referenced by %d transactions", e.CategoryID, e.TransactionCount)
}

func (e *CategoryInUseError) Unwrap() error {
	return ErrCategoryInUse
}
