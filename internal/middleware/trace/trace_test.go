package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerGeneratesRequestID(t *testing.T) {
	m := NewMiddleware(nil)

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected generated id with req_ prefix, got %q", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
}

func TestHandlerKeepsIncomingRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"plain", "abc-123", true},
		{"with spaces", "abc 123", false},
		{"too long", strings.Repeat("a", maxIncomingIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(nil)
			var seen string
			h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.keep && seen != tt.incoming {
				t.Errorf("expected %q, got %q", tt.incoming, seen)
			}
			if !tt.keep && !strings.HasPrefix(seen, "req_") {
				t.Errorf("expected generated id, got %q", seen)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	status := http.StatusOK
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	status = http.StatusInternalServerError
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	if got.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", got.TotalRequests)
	}
	if got.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", got.FailedRequests)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
