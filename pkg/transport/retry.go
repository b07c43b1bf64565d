// Package transport provides the retrying HTTP round tripper used beneath
// the Helix client. Connection failures and retryable server statuses are
// retried here with exponential backoff; application-level handling of
// 401/429 stays in the client on top.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for transport retries.
var (
	helixTransportRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helix_transport_retries_total",
		Help: "Total number of transport-level retry attempts by reason",
	}, []string{"reason"})

	helixTransportBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "helix_transport_backoff_seconds",
		Help:    "Backoff duration before transport retries by reason",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"reason"})

	helixTransportExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_transport_retry_exhausted_total",
		Help: "Total number of times transport retry attempts were exhausted",
	})
)

// ErrRetryExhausted is returned when all retry attempts are exhausted
// without completing the request.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// retryableStatus lists the server statuses retried at transport level.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// retryableMethod lists the methods safe to resend.
var retryableMethod = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodPost:    true,
}

// Config holds the retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts (including the initial request).
	MaxAttempts int

	// InitialInterval is the first backoff duration.
	InitialInterval time.Duration

	// MaxInterval caps the backoff duration.
	MaxInterval time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// Retrying is an http.RoundTripper that retries connection failures and
// retryable server statuses with exponential backoff.
type Retrying struct {
	base   http.RoundTripper
	config Config
	logger zerolog.Logger
}

// NewRetrying wraps base with retry behavior. A nil base uses
// http.DefaultTransport. Out-of-range config values fall back to defaults.
func NewRetrying(base http.RoundTripper, config Config, logger zerolog.Logger) *Retrying {
	if base == nil {
		base = http.DefaultTransport
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = DefaultConfig().InitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = DefaultConfig().MaxInterval
	}
	if config.Multiplier < 1 {
		config.Multiplier = DefaultConfig().Multiplier
	}

	return &Retrying{
		base:   base,
		config: config,
		logger: logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Retrying) RoundTrip(req *http.Request) (*http.Response, error) {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = t.config.InitialInterval
	schedule.MaxInterval = t.config.MaxInterval
	schedule.Multiplier = t.config.Multiplier
	schedule.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts

	// Requests with a non-rewindable body cannot be resent.
	replayable := req.Body == nil || req.GetBody != nil

	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)

		reason := ""
		switch {
		case err != nil:
			reason = "network"
		case retryableStatus[resp.StatusCode]:
			reason = "server"
		default:
			if attempt > 1 {
				t.logger.Info().
					Str("endpoint", req.URL.Path).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if !replayable || !retryableMethod[req.Method] || attempt >= t.config.MaxAttempts {
			if err != nil {
				if attempt > 1 {
					helixTransportExhaustedTotal.Inc()
					return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempt, err)
				}
				return nil, err
			}
			// Last response carries the status; the caller decides.
			if attempt > 1 {
				helixTransportExhaustedTotal.Inc()
			}
			return resp, nil
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		wait := schedule.NextBackOff()
		helixTransportRetriesTotal.WithLabelValues(reason).Inc()
		helixTransportBackoffSeconds.WithLabelValues(reason).Observe(wait.Seconds())

		t.logger.Debug().
			Str("endpoint", req.URL.Path).
			Str("reason", reason).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, fmt.Errorf("retry backoff: %w", err)
		}

		if req.Body != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}
	}
}

// sleep waits for the given duration or until the context is done.
func (t *Retrying) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
