// Package apperr defines the two error families surfaced to clients:
// field validation errors, which are aggregated per field, and status-carrying
// errors, which short-circuit validation and are returned as the sole error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// StatusError carries an explicit HTTP status and a client-safe message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// NewStatus builds a StatusError.
func NewStatus(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

// Unauthorized is a 401 StatusError.
func Unauthorized(message string) *StatusError {
	return NewStatus(http.StatusUnauthorized, message)
}

// Forbidden is a 403 StatusError.
func Forbidden(message string) *StatusError {
	return NewStatus(http.StatusForbidden, message)
}

// NotFound is a 404 StatusError.
func NotFound(message string) *StatusError {
	return NewStatus(http.StatusNotFound, message)
}

// FieldError is a single failed check on a request field. Checks return it to
// have the failure aggregated instead of aborting the whole gate.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Field builds a FieldError.
func Field(message string) *FieldError {
	return &FieldError{Message: message}
}

// FieldFailure is the serialized form of a failed field.
type FieldFailure struct {
	Msg   string `json:"msg"`
	Value any    `json:"value,omitempty"`
}

// ValidationError aggregates the first failure of every failing field.
type ValidationError struct {
	Fields map[string]FieldFailure
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name].Msg))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Status reports 422 for every validation error.
func (e *ValidationError) Status() int {
	return http.StatusUnprocessableEntity
}

// AsStatus unwraps err into a StatusError.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsValidation unwraps err into a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsField reports whether err is a field-scoped failure.
func IsField(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
