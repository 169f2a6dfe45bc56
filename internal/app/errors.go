package app

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is returned when an operation needs a signed-in caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAdminRequired is returned when a signed-in caller is not on the admin allow-list.
	ErrAdminRequired = errors.New("admin access required")
	// ErrAccessDenied is returned when a caller reads a request they neither own nor administer.
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError reports malformed input, unknown references, and form schema
// mismatches. Fields maps an input path to its messages.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], ", "))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func newValidationError(message, field, detail string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string][]string{field: {detail}}}
}

// fieldErrors collects per-field messages before they become a ValidationError.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// err returns nil when nothing was collected.
func (f fieldErrors) err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Message: message, Fields: map[string][]string(f)}
}
