package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event kinds. The prefix before the dot selects the message type.
const (
	KindCategoryCreated    = "category.created"
	KindCategoryUpdated    = "category.updated"
	KindCategoryDeleted    = "category.deleted"
	KindSubcategoryCreated = "subcategory.created"
	KindSubcategoryDeleted = "subcategory.deleted"
	KindExampleCreated     = "example.created"
	KindExampleDeleted     = "example.deleted"

	KindTransactionCreated = "transaction.created"
	KindTransactionUpdated = "transaction.updated"
	KindTransactionDeleted = "transaction.deleted"
)

// CategoryEvent signals a change to the data the suggestion engine reads.
// Consumers refetch from the store; the message carries only identifiers.
type CategoryEvent struct {
	Kind          string    `json:"kind"`
	CategoryID    int64     `json:"categoryId"`
	SubcategoryID *int64    `json:"subcategoryId,omitempty"`
	ExampleID     *int64    `json:"exampleId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type TransactionEvent struct {
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transactionId"`
	CategoryID    int64     `json:"categoryId"`
	AmountCents   int64     `json:"amountCents"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewCategoryEvent(kind string, categoryID int64) *CategoryEvent {
	return &CategoryEvent{Kind: kind, CategoryID: categoryID, Timestamp: time.Now()}
}

func NewTransactionEvent(kind string, transactionID, categoryID, amountCents int64) *TransactionEvent {
	return &TransactionEvent{
		Kind:          kind,
		TransactionID: transactionID,
		CategoryID:    categoryID,
		AmountCents:   amountCents,
		Timestamp:     time.Now(),
	}
}

func (e *CategoryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a message body into either a *CategoryEvent or a
// *TransactionEvent depending on its kind.
func Decode(data []byte) (any, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	prefix, _, ok := strings.Cut(head.Kind, ".")
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", head.Kind)
	}
	switch prefix {
	case "category", "subcategory", "example":
		var e CategoryEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case "transaction":
		var e TransactionEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", head.Kind)
}
