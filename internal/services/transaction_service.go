package services

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ports"
)

// TransactionRepository is the storage needed to manage transactions.
type TransactionRepository interface {
	ports.TransactionStore
	GetCategory(ctx context.Context, id int64) (core.Category, error)
}

type TransactionService struct {
	store     TransactionRepository
	publisher Publisher
}

func NewTransactionService(store TransactionRepository, publisher Publisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	if f.Month != "" {
		if err := core.ValidateMonth(f.Month); err != nil {
			return core.TransactionPage{}, err
		}
	}
	page, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := s.check(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	publishTransaction(ctx, s.publisher, amqp.NewTransactionEvent(
		amqp.KindTransactionCreated, created.ID, created.CategoryID, created.Amount.Cents))
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if _, err := s.store.GetTransaction(ctx, t.ID); err != nil {
		return core.Transaction{}, err
	}
	if err := s.check(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	publishTransaction(ctx, s.publisher, amqp.NewTransactionEvent(
		amqp.KindTransactionUpdated, updated.ID, updated.CategoryID, updated.Amount.Cents))
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	publishTransaction(ctx, s.publisher, amqp.NewTransactionEvent(
		amqp.KindTransactionDeleted, t.ID, t.CategoryID, t.Amount.Cents))
	return nil
}

// check validates t and its category references.
func (s *TransactionService) check(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c, err := s.store.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return err
	}
	if t.SubcategoryID == nil {
		return nil
	}
	for _, sub := range c.Subcategories {
		if sub.ID == *t.SubcategoryID {
			return nil
		}
	}
	return fmt.Errorf("subcategory %d: %w", *t.SubcategoryID, core.ErrForeignSubcategory)
}
