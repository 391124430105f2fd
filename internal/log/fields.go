package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldError           = "error"
	FieldErrorType       = "error_type"
	FieldOperation       = "operation"
	FieldCategoryID      = "category_id"
	FieldCategoryName    = "category_name"
	FieldTransactionID   = "transaction_id"
	FieldDescription     = "description"
	FieldAmountCents     = "amount_cents"
	FieldSuggestionCount = "suggestion_count"
	FieldTopConfidence   = "top_confidence"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSuggest   = "suggest"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSuggest  = "suggest"
	OpReport   = "report"
	OpValidate = "validate"
	OpParse    = "parse"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields builds slog key/value pairs.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithTransaction(id int64, desc string, amountCents int64, categoryID int64) LogFields {
	f[FieldTransactionID] = id
	f[FieldDescription] = desc
	f[FieldAmountCents] = amountCents
	f[FieldCategoryID] = categoryID
	return f
}

// WithSuggestion records the outcome of a suggestion lookup. The top
// confidence is only set when there is at least one suggestion.
func (f LogFields) WithSuggestion(desc string, count int, topConfidence int) LogFields {
	f[FieldDescription] = desc
	f[FieldSuggestionCount] = count
	if count > 0 {
		f[FieldTopConfidence] = topConfidence
	}
	return f
}

// ToSlice returns the fields sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
