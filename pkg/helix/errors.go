package helix

import (
	"fmt"
)

// ValidationError reports caller-supplied parameters that can never
// produce a valid request: mutually exclusive selectors, missing required
// selectors, or out-of-range identifier counts. It is raised before any
// network call and never retried.
type ValidationError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
