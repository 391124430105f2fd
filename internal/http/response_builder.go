// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses.
// It provides a fluent API for status, headers and body, plus the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

type errorBody struct {
	Error            string `json:"error"`
	TransactionCount *int   `json:"transactionCount,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// CategoryInUseResponse reports a refused category delete.
func CategoryInUseResponse(transactionCount int) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusBadRequest).
		Body(errorBody{
			Error:            "Cannot delete category with existing transactions",
			TransactionCount: &transactionCount,
		})
}

// errorMessages holds the client-facing messages for one operation.
type errorMessages struct {
	notFound  string
	conflict  string
	internal  string
	operation string
}

// writeError maps err to a response. Only unexpected errors are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages) {
	var inUse *core.CategoryInUseError
	switch {
	case errors.As(err, &inUse):
		CategoryInUseResponse(inUse.TransactionCount).Write(w)
	case core.IsValidationError(err):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(msgs.notFound).Write(w)
	case errors.Is(err, core.ErrConflict):
		BadRequestError(msgs.conflict).Write(w)
	default:
		s.logger.LogError(r.Context(), msgs.internal, err, applog.ErrorTypeInternal, msgs.operation, nil)
		InternalServerError(msgs.internal).Write(w)
	}
}
