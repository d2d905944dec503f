// Package validation carries field-level input failures from the domain and
// transport layers to the HTTP error mapper.
package validation

import (
	"fmt"
	"strings"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// Error is a set of field failures. It maps to 422.
type Error struct {
	Fields []FieldError
}

// Field returns an Error for a single field.
func Field(field, format string, args ...any) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
