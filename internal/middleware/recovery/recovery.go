// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

const body = `{"error":"Internal server error"}`

// Recoverer logs a panic with its stack and answers with a JSON 500.
// http.ErrAbortHandler is re-panicked so the server can abort the
// connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "Panic recovered",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(body))
		}()
		next.ServeHTTP(w, r)
	})
}
