package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
)

type fakeSource struct {
	mu       sync.Mutex
	examples []core.Example
	err      error
	calls    int
	gotCtx   context.Context
}

func (f *fakeSource) ListExamples(ctx context.Context) ([]core.Example, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCtx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.examples, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ptr(v int64) *int64 { return &v }

func seedExamples() []core.Example {
	return []core.Example{
		{ID: 1, CategoryID: 1, CategoryName: "Food", SubcategoryID: ptr(1), SubcategoryName: "Groceries",
			Description: "REWE", DefaultNotes: "Weekly shopping", Keywords: []string{"rewe", "supermarket", "grocery"}},
		{ID: 2, CategoryID: 1, CategoryName: "Food", SubcategoryID: ptr(1), SubcategoryName: "Groceries",
			Description: "EDEKA", DefaultNotes: "Grocery shopping", Keywords: []string{"edeka", "supermarket", "grocery"}},
		{ID: 3, CategoryID: 1, CategoryName: "Food", SubcategoryID: ptr(2), SubcategoryName: "Restaurants",
			Description: "McDonald's", Keywords: []string{"mcdonalds", "mcdonald", "fast food"}},
		{ID: 4, CategoryID: 1, CategoryName: "Food", SubcategoryID: ptr(3), SubcategoryName: "Coffee",
			Description: "Starbucks", Keywords: []string{"starbucks", "coffee", "cafe"}},
		{ID: 5, CategoryID: 2, CategoryName: "Transportation", SubcategoryID: ptr(5), SubcategoryName: "Fuel",
			Description: "Shell", Keywords: []string{"shell", "tankstelle", "gas", "fuel"}},
		{ID: 6, CategoryID: 2, CategoryName: "Transportation", SubcategoryID: ptr(5), SubcategoryName: "Fuel",
			Description: "Aral", Keywords: []string{"aral", "tankstelle", "gas", "fuel"}},
		{ID: 7, CategoryID: 2, CategoryName: "Transportation", SubcategoryID: ptr(6), SubcategoryName: "Public Transport",
			Description: "Deutsche Bahn", Keywords: []string{"db", "deutsche bahn", "train", "bahn"}},
	}
}

func TestSuggestRanksByKeywordHits(t *testing.T) {
	e := NewEngine(&fakeSource{examples: seedExamples()})

	got, err := e.Suggest(context.Background(), "REWE Supermarket Grocery run")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.Suggestion{
		CategoryID: 1, CategoryName: "Food", SubcategoryID: ptr(1), SubcategoryName: "Groceries",
		DefaultNotes: "Weekly shopping", Confidence: 3,
	}, got[0])
	assert.Equal(t, 2, got[1].Confidence)
	assert.Equal(t, "Grocery shopping", got[1].DefaultNotes)
}

func TestSuggestCaseInsensitive(t *testing.T) {
	e := NewEngine(&fakeSource{examples: []core.Example{
		{ID: 1, CategoryID: 9, CategoryName: "Coffee", Keywords: []string{"StarBucks"}},
	}})

	got, err := e.Suggest(context.Background(), "STARBUCKS #123")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Confidence)
}

func TestSuggestTiesKeepSourceOrderAndCapAtThree(t *testing.T) {
	e := NewEngine(&fakeSource{examples: seedExamples()})

	// "gas" hits Shell and Aral, "supermarket" hits REWE and EDEKA: four
	// candidates at confidence 1, truncated to the first three in source order.
	got, err := e.Suggest(context.Background(), "supermarket gas")
	require.NoError(t, err)
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "Groceries", got[0].SubcategoryName)
	assert.Equal(t, "Weekly shopping", got[0].DefaultNotes)
	assert.Equal(t, "Grocery shopping", got[1].DefaultNotes)
	assert.Equal(t, "Fuel", got[2].SubcategoryName)
	for _, s := range got {
		assert.Equal(t, 1, s.Confidence)
	}
}

func TestSuggestHigherScoreOvertakesEarlierExample(t *testing.T) {
	e := NewEngine(&fakeSource{examples: seedExamples()})

	got, err := e.Suggest(context.Background(), "Aral Tankstelle fuel")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Confidence)
	assert.Equal(t, 2, got[1].Confidence)
}

func TestSuggestSubstringOverMatch(t *testing.T) {
	e := NewEngine(&fakeSource{examples: seedExamples()})

	got, err := e.Suggest(context.Background(), "adbot subscription")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Public Transport", got[0].SubcategoryName)
	assert.Equal(t, 1, got[0].Confidence)
}

func TestSuggestEmptyAndNoMatch(t *testing.T) {
	src := &fakeSource{examples: seedExamples()}
	e := NewEngine(src)

	got, err := e.Suggest(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, src.callCount(), "empty description must not hit the store")

	got, err = e.Suggest(context.Background(), "Unrelated vendor")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSuggestSkipsExamplesWithoutKeywords(t *testing.T) {
	e := NewEngine(&fakeSource{examples: []core.Example{
		{ID: 1, CategoryID: 1, CategoryName: "Misc", Description: "Anything"},
	}})

	got, err := e.Suggest(context.Background(), "Anything at all")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestPropagatesStoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	e := NewEngine(&fakeSource{err: boom})

	got, err := e.Suggest(context.Background(), "REWE")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestSuggestPassesContext(t *testing.T) {
	type key struct{}
	src := &fakeSource{examples: seedExamples()}
	ctx := context.WithValue(context.Background(), key{}, "v")

	_, err := NewEngine(src).Suggest(ctx, "rewe")
	require.NoError(t, err)
	assert.Equal(t, "v", src.gotCtx.Value(key{}))
}

func TestSuggestConcurrent(t *testing.T) {
	e := NewEngine(&fakeSource{examples: seedExamples()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Suggest(context.Background(), "Deutsche Bahn train")
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
}

func TestSuggestTwoExampleScenario(t *testing.T) {
	examples := []core.Example{
		{ID: 1, CategoryID: 1, CategoryName: "Food", SubcategoryName: "Groceries",
			Description: "REWE", Keywords: []string{"rewe", "supermarket", "grocery"}},
		{ID: 2, CategoryID: 2, CategoryName: "Transportation", SubcategoryName: "Fuel",
			Description: "Shell", Keywords: []string{"shell", "tankstelle", "gas", "fuel"}},
	}
	e := NewEngine(&fakeSource{examples: examples})

	tests := []struct {
		description    string
		wantCategories []string
		wantConfidence []int
	}{
		{"REWE Markt Berlin", []string{"Food"}, []int{1}},
		{"Shell Tankstelle", []string{"Transportation"}, []int{2}},
		{"Aldi", []string{}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, err := e.Suggest(context.Background(), tt.description)
			require.NoError(t, err)

			categories := []string{}
			confidence := []int{}
			for _, s := range got {
				categories = append(categories, s.CategoryName)
				confidence = append(confidence, s.Confidence)
			}
			assert.Equal(t, tt.wantCategories, categories)
			assert.Equal(t, tt.wantConfidence, confidence)
		})
	}
}
