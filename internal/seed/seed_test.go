package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/storage/memory"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	require.Len(t, d.Categories, 5)

	names := make([]string, 0, len(d.Categories))
	examples := 0
	for _, c := range d.Categories {
		names = append(names, c.Name)
		examples += len(c.Examples)
	}
	assert.Equal(t, []string{"Food", "Transportation", "Shopping", "Utilities", "Income"}, names)
	assert.Equal(t, 7, examples)
	assert.Equal(t, []string{"db", "deutsche bahn", "train", "bahn"}, d.Categories[1].Examples[2].Keywords)
}

func TestLoadRejectsUnknownSubcategory(t *testing.T) {
	_, err := Load(strings.NewReader(`
categories:
  - name: Food
    subcategories: [Groceries]
    examples:
      - description: REWE
        subcategory: Bakery
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subcategory Bakery")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("categories:\n  - name: Food\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	d, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, d.Categories)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: Pets\n    subcategories: [Food]\n"), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, d.Categories, 1)
	assert.Equal(t, "Pets", d.Categories[0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	d, err := Default()
	require.NoError(t, err)

	n, err := Apply(ctx, store, d)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	examples, err := store.ListExamples(ctx)
	require.NoError(t, err)
	require.Len(t, examples, 7)
	assert.Equal(t, "REWE", examples[0].Description)
	assert.Equal(t, "Groceries", examples[0].SubcategoryName)
	assert.Equal(t, "Weekly shopping", examples[0].DefaultNotes)
	assert.Equal(t, "Deutsche Bahn", examples[6].Description)
	assert.Equal(t, "Public Transport", examples[6].SubcategoryName)

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 5)
	assert.Equal(t, "Food", cats[0].Name)
	assert.Equal(t, "#10B981", cats[0].Color)
	assert.Len(t, cats[0].Subcategories, 4)

	// Second run is a no-op.
	n, err = Apply(ctx, store, d)
	require.NoError(t, err)
	assert.Zero(t, n)
	examples, _ = store.ListExamples(ctx)
	assert.Len(t, examples, 7)
}
