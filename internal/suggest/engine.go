// Package suggest ranks candidate categories for a free-text transaction
// description by counting keyword hits against the stored examples.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"expenses/internal/core"
)

// MaxSuggestions bounds the number of suggestions returned.
const MaxSuggestions = 3

// ExampleSource provides the examples to score. ListExamples must return
// records in a stable order; ties between equal scores keep that order.
type ExampleSource interface {
	ListExamples(ctx context.Context) ([]core.Example, error)
}

// Engine is stateless and safe for concurrent use.
type Engine struct {
	source ExampleSource
}

func NewEngine(source ExampleSource) *Engine {
	return &Engine{source: source}
}

// Suggest returns at most MaxSuggestions suggestions for description, best
// first. A keyword scores one point when it occurs anywhere in the
// lower-cased description, so "db" matches "adbot".
func (e *Engine) Suggest(ctx context.Context, description string) ([]core.Suggestion, error) {
	if description == "" {
		return []core.Suggestion{}, nil
	}

	examples, err := e.source.ListExamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}

	d := strings.ToLower(description)
	out := make([]core.Suggestion, 0, MaxSuggestions)
	for _, ex := range examples {
		confidence := score(d, ex.Keywords)
		if confidence == 0 {
			continue
		}
		out = append(out, core.Suggestion{
			CategoryID:      ex.CategoryID,
			CategoryName:    ex.CategoryName,
			SubcategoryID:   ex.SubcategoryID,
			SubcategoryName: ex.SubcategoryName,
			DefaultNotes:    ex.DefaultNotes,
			Confidence:      confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out, nil
}

func score(description string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(description, strings.ToLower(k)) {
			n++
		}
	}
	return n
}
