package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Header names used by the Helix API for bucket signaling.
const (
	HeaderRemaining = "Ratelimit-Remaining"
	HeaderReset     = "Ratelimit-Reset"
)

// Prometheus metrics for rate limit tracking.
var (
	helixRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "helix_ratelimit_remaining",
		Help: "Requests remaining in the current Helix rate limit bucket",
	})

	helixThrottleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_ratelimit_waits_total",
		Help: "Total number of waits for bucket reset after a 429",
	})

	helixThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "helix_ratelimit_wait_seconds",
		Help:    "Duration of waits for bucket reset",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
	})
)

// InvariantError reports an internal consistency failure in the limiter.
// It indicates a logic bug in the caller, not a server condition.
type InvariantError struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("rate limit invariant violated: %s", e.Message)
}

// Limiter owns the rate-limit state for a single client instance.
// State is deliberately per-instance: sharing bucket signals across
// clients with different credentials would couple unrelated callers.
type Limiter struct {
	mu     sync.Mutex
	state  State
	margin time.Duration
	logger zerolog.Logger
}

// NewLimiter creates a limiter with the default safety margin.
func NewLimiter(logger zerolog.Logger) *Limiter {
	return &Limiter{
		margin: DefaultMargin,
		logger: logger,
	}
}

// Observe records the bucket signals from a Helix response. Responses
// without rate-limit headers (e.g. the OAuth endpoint) are ignored.
// Unparsable values are logged and leave the state untouched.
func (l *Limiter) Observe(headers http.Header) {
	remainStr := headers.Get(HeaderRemaining)
	resetStr := headers.Get(HeaderReset)
	if remainStr == "" || resetStr == "" {
		return
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		l.logger.Warn().Str("value", remainStr).Msg("Unparsable Ratelimit-Remaining header")
		return
	}

	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		l.logger.Warn().Str("value", resetStr).Msg("Unparsable Ratelimit-Reset header")
		return
	}

	l.mu.Lock()
	l.state = State{
		Remaining: remaining,
		ResetAt:   time.Unix(resetUnix, 0),
		Observed:  true,
	}
	l.mu.Unlock()

	helixRequestsRemaining.Set(float64(remaining))

	l.logger.Debug().
		Int("remaining", remaining).
		Time("reset_at", time.Unix(resetUnix, 0)).
		Msg("Rate limit state updated")
}

// State returns a snapshot of the last observed signals.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Wait blocks the caller until the bucket has refilled. It must only be
// invoked in direct response to a 429: calling it while the last observed
// remaining count is nonzero (or before any observation) returns an
// InvariantError.
//
// Only the calling goroutine is blocked; the limiter's mutex is not held
// during the sleep.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	state := l.state
	margin := l.margin
	l.mu.Unlock()

	if !state.Exhausted() {
		return &InvariantError{
			Message: fmt.Sprintf("wait requested but remaining quota is %d (observed=%t)",
				state.Remaining, state.Observed),
		}
	}

	wait := state.WaitDuration(time.Now(), margin)

	l.logger.Debug().
		Dur("wait", wait).
		Time("reset_at", state.ResetAt).
		Msg("Waiting for rate limit reset")

	helixThrottleWaitsTotal.Inc()
	helixThrottleWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetMargin overrides the safety margin (for testing).
func (l *Limiter) SetMargin(margin time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.margin = margin
}
