package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the request's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound is returned when a request id is unknown.
	ErrNotFound = errors.New("request not found")
)

// ValidationError lists the offending fields of a create payload, keyed by
// field path with the failed rule as value.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "invalid request details: " + strings.Join(parts, ", ")
}

func transitionError(action string, k Kind, from Status) error {
	return fmt.Errorf("%w: cannot %s %s in status %q", ErrInvalidTransition, action, k, from)
}
