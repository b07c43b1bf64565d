// Package ratelimit tracks the Helix request-bucket headers and blocks
// callers while the bucket is exhausted. It watches the Ratelimit-Remaining
// and Ratelimit-Reset headers returned on every Helix response.
package ratelimit

import (
	"time"
)

// DefaultMargin is added on top of the server-announced reset time.
// It absorbs clock skew between client and server.
const DefaultMargin = 100 * time.Millisecond

// State is a snapshot of the last observed rate-limit signals.
type State struct {
	// Remaining is the number of requests left in the current bucket window.
	// Extracted from the Ratelimit-Remaining header.
	Remaining int

	// ResetAt is when the bucket refills.
	// Calculated from the Ratelimit-Reset header (unix seconds).
	ResetAt time.Time

	// Observed reports whether any rate-limit headers have been seen yet.
	// A fresh limiter has no state and must never block.
	Observed bool
}

// Exhausted returns true if the last response reported an empty bucket.
func (s State) Exhausted() bool {
	return s.Observed && s.Remaining == 0
}

// WaitDuration returns how long a caller must sleep from now until the
// bucket refills, including the safety margin. The margin alone is returned
// when the reset time has already passed.
func (s State) WaitDuration(now time.Time, margin time.Duration) time.Duration {
	until := s.ResetAt.Sub(now)
	if until < 0 {
		until = 0
	}
	return until + margin
}
