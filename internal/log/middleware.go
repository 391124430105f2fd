package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// Middleware stores a request-scoped logger in the context. requestID
// extracts the ID assigned by the tracing middleware.
func Middleware(logger *Logger, requestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.WithComponent(ComponentHTTP)
			if requestID != nil {
				if id := requestID(r.Context()); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
		})
	}
}

func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request logger, or one wrapping slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: ComponentApp,
	}
}

// StructuredLogger logs domain events with a consistent set of fields.
type StructuredLogger struct{}

func NewStructuredLogger() *StructuredLogger {
	return &StructuredLogger{}
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id int64, desc string, amountCents, categoryID int64) {
	fields := NewFields().
		WithTransaction(id, desc, amountCents, categoryID).
		WithOperation(OpCreate)
	FromContext(ctx).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogSuggestion(ctx context.Context, desc string, count, topConfidence int) {
	fields := NewFields().
		WithSuggestion(desc, count, topConfidence).
		WithOperation(OpSuggest)
	FromContext(ctx).WithComponent(ComponentSuggest).DebugContext(ctx, "Category suggestions computed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation)
	FromContext(ctx).ErrorContext(ctx, msg, fields.ToSlice()...)
}
