package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentWorker, Output: &buf})

	l.InfoContext(context.Background(), "hello", FieldCategoryID, 7)
	l.DebugContext(context.Background(), "hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldCategoryID] != float64(7) {
		t.Errorf("category_id = %v", rec[FieldCategoryID])
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().
		WithOperation(OpSuggest).
		WithSuggestion("REWE", 0, 0).
		WithRequestID("").
		ToSlice()

	want := []any{FieldDescription, "REWE", FieldOperation, OpSuggest, FieldSuggestionCount, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMiddlewareStoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf})

	h := Middleware(base, func(context.Context) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			NewStructuredLogger().LogError(r.Context(), "failed", errors.New("boom"), ErrorTypeDatabase, OpList, nil)
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	for _, want := range []string{"request_id=req_abc", "component=http", "error=boom", "error_type=database_error", "operation=list"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != ComponentApp {
		t.Fatalf("unexpected default logger %+v", l)
	}
}
