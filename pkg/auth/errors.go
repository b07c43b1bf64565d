package auth

import (
	"fmt"
)

// AuthError reports an authorization failure: either the token exchange
// itself was rejected, or a request kept failing with 401 after a refresh.
// It is never retried; callers surface it.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("auth error: %s", e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}
