// Package apierror provides standardized error response structures for the API
// and the typed errors the domain layer returns. Handlers translate every error
// through this package so storage details never reach the client.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string         `json:"detail"`
	Kind   Kind           `json:"kind,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// ── Domain errors ─────────────────────────────────────────────────────────────

// Kind classifies a domain error. Every kind maps to exactly one HTTP status.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindPersistence Kind = "persistence"
)

// Error is returned by services. Message is safe to show to an operator;
// Err (the cause) is only logged.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail adds a key-value pair to the error details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func Invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Invalidf(format string, args ...any) *Error {
	return Invalid(fmt.Sprintf(format, args...))
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": fmt.Sprint(id)},
	}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Persistence wraps a storage failure. The operation must be treated as not applied.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: "could not " + op, Err: err}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindPersistence for untyped errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Status returns the HTTP status for any error.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the client envelope. Persistence causes are hidden.
func FromError(err error) *APIError {
	e, ok := As(err)
	if !ok {
		return &APIError{Detail: "internal server error", Kind: KindPersistence}
	}
	return &APIError{Detail: e.Message, Kind: e.Kind, Extra: e.Details}
}
