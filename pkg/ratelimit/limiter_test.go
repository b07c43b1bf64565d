package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestLimiter_Observe(t *testing.T) {
	tests := []struct {
		name          string
		remaining     string
		reset         string
		wantObserved  bool
		wantRemaining int
	}{
		{
			name:          "valid headers",
			remaining:     "42",
			reset:         fmt.Sprintf("%d", time.Now().Add(30*time.Second).Unix()),
			wantObserved:  true,
			wantRemaining: 42,
		},
		{
			name:         "missing remaining header",
			remaining:    "",
			reset:        "1700000000",
			wantObserved: false,
		},
		{
			name:         "missing reset header",
			remaining:    "10",
			reset:        "",
			wantObserved: false,
		},
		{
			name:         "unparsable remaining",
			remaining:    "lots",
			reset:        "1700000000",
			wantObserved: false,
		},
		{
			name:         "unparsable reset",
			remaining:    "10",
			reset:        "tomorrow",
			wantObserved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(testLogger())

			headers := http.Header{}
			if tt.remaining != "" {
				headers.Set(HeaderRemaining, tt.remaining)
			}
			if tt.reset != "" {
				headers.Set(HeaderReset, tt.reset)
			}

			limiter.Observe(headers)

			state := limiter.State()
			if state.Observed != tt.wantObserved {
				t.Errorf("Observed = %v, want %v", state.Observed, tt.wantObserved)
			}
			if tt.wantObserved && state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
		})
	}
}

func TestLimiter_Wait_InvariantViolation(t *testing.T) {
	tests := []struct {
		name    string
		observe func(l *Limiter)
	}{
		{
			name:    "never observed",
			observe: func(l *Limiter) {},
		},
		{
			name: "quota available",
			observe: func(l *Limiter) {
				headers := http.Header{}
				headers.Set(HeaderRemaining, "30")
				headers.Set(HeaderReset, "1700000000")
				l.Observe(headers)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(testLogger())
			tt.observe(limiter)

			err := limiter.Wait(context.Background())
			if err == nil {
				t.Fatal("Wait() error = nil, want InvariantError")
			}

			var invErr *InvariantError
			if !errors.As(err, &invErr) {
				t.Errorf("Wait() error = %v, want *InvariantError", err)
			}
		})
	}
}

func TestLimiter_Wait_BlocksUntilReset(t *testing.T) {
	limiter := NewLimiter(testLogger())
	limiter.SetMargin(50 * time.Millisecond)

	resetAt := time.Now().Add(200 * time.Millisecond)
	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, fmt.Sprintf("%d", resetAt.Unix()))
	limiter.Observe(headers)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	elapsed := time.Since(start)

	// Unix truncation can pull the reset earlier than resetAt, but the
	// margin must always be honored.
	if elapsed < 50*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least the 50ms margin", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Wait() took %v, expected sub-second wait", elapsed)
	}
}

func TestLimiter_Wait_PastReset(t *testing.T) {
	limiter := NewLimiter(testLogger())
	limiter.SetMargin(10 * time.Millisecond)

	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, fmt.Sprintf("%d", time.Now().Add(-1*time.Minute).Unix()))
	limiter.Observe(headers)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Wait() took %v for an already-reset bucket", elapsed)
	}
}

func TestLimiter_Wait_ContextCancelled(t *testing.T) {
	limiter := NewLimiter(testLogger())

	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, fmt.Sprintf("%d", time.Now().Add(1*time.Hour).Unix()))
	limiter.Observe(headers)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}
