// Package client provides the core Helix HTTP client with token refresh,
// rate-limit backoff, and error handling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/twitchdc/twitch-helix-client/pkg/auth"
	"github.com/twitchdc/twitch-helix-client/pkg/pagination"
	"github.com/twitchdc/twitch-helix-client/pkg/ratelimit"
	"github.com/twitchdc/twitch-helix-client/pkg/transport"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix/"

// Prometheus metrics for Helix client operations.
var (
	helixRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helix_requests_total",
		Help: "Total Helix requests by endpoint and status",
	}, []string{"endpoint", "status"})

	helixRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "helix_request_duration_seconds",
		Help:    "Helix logical request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	helixAuthRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_auth_retries_total",
		Help: "Total requests retried after an app access token refresh",
	})
)

// Config holds the client configuration.
type Config struct {
	// Auth is the token manager (REQUIRED).
	Auth *auth.Manager

	// BaseURL overrides the Helix API root (default: DefaultBaseURL).
	BaseURL string

	// Timeout bounds a single data call, transport retries included.
	Timeout time.Duration

	// Retry configures the transport-level retry policy.
	Retry transport.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(tokens *auth.Manager) Config {
	return Config{
		Auth:    tokens,
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
		Retry:   transport.DefaultConfig(),
	}
}

// Envelope is the common Helix response shell: a data array, an optional
// continuation cursor, and for a few resources a total record count.
type Envelope struct {
	Data       []json.RawMessage `json:"data"`
	Pagination Pagination        `json:"pagination"`
	Total      int               `json:"total"`
}

// Pagination carries the opaque continuation cursor of a response.
type Pagination struct {
	Cursor string `json:"cursor"`
}

// Client is the Helix request executor. One logical call may translate
// into several transport requests: refresh-and-retry on 401, wait-and-retry
// on 429, and transparent transport retries underneath for 5xx and
// connection failures.
type Client struct {
	httpClient *http.Client
	tokens     *auth.Manager
	limiter    *ratelimit.Limiter
	baseURL    string
	logger     zerolog.Logger
}

// New creates a new Helix client.
func New(cfg Config) (*Client, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "helix-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport.NewRetrying(nil, cfg.Retry, logger),
		},
		tokens:  cfg.Auth,
		limiter: ratelimit.NewLimiter(logger),
		baseURL: cfg.BaseURL,
		logger:  logger,
	}, nil
}

// Get performs one logical GET against a Helix endpoint and returns the
// parsed envelope.
//
// The call is retried in-place after a rate-limit wait on 429, and once
// after a token refresh on 401. A second 401 after a refresh fails with an
// AuthError: the refresh guard is the sole defense against an infinite
// refresh loop when new credentials are also rejected.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Envelope, error) {
	startTime := time.Now()
	defer func() {
		helixRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	refreshed := false
	for {
		resp, err := c.send(ctx, endpoint, params)
		if err != nil {
			helixRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return nil, fmt.Errorf("helix request to %q: %w", endpoint, err)
		}

		c.limiter.Observe(resp.Header)
		helixRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		switch resp.StatusCode {
		case http.StatusOK:
			var envelope Envelope
			decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)
			resp.Body.Close()
			if decodeErr != nil {
				return nil, fmt.Errorf("decode response from %q: %w", endpoint, decodeErr)
			}
			return &envelope, nil

		case http.StatusTooManyRequests:
			drain(resp)
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request throttled, waiting for rate limit reset")
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}

		case http.StatusUnauthorized:
			drain(resp)
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request unauthorized, app access token may be expired")
			if refreshed {
				c.logger.Error().
					Str("endpoint", endpoint).
					Msg("New access token does not resolve unauthorized status")
				return nil, &auth.AuthError{
					StatusCode: http.StatusUnauthorized,
					Message:    "new access token did not resolve authorization failure",
				}
			}
			if _, err := c.tokens.Refresh(ctx); err != nil {
				return nil, err
			}
			refreshed = true
			helixAuthRetriesTotal.Inc()

		default:
			reason := readReason(resp)
			c.logger.Error().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("reason", reason).
				Msg("Unhandled request status")
			return nil, &RequestError{
				Endpoint:   endpoint,
				Params:     params,
				StatusCode: resp.StatusCode,
				Reason:     reason,
			}
		}
	}
}

// FetchPage implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (pagination.Page, error) {
	envelope, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.Page{
		Records: envelope.Data,
		Cursor:  envelope.Pagination.Cursor,
		Total:   envelope.Total,
	}, nil
}

// send issues a single transport request with the current credential.
func (c *Client) send(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Client-Id", c.tokens.ClientID())
	req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("params", params.Encode()).
		Msg("Executing Helix request")

	return c.httpClient.Do(req)
}

// RateLimit returns a snapshot of the last observed rate-limit state.
func (c *Client) RateLimit() ratelimit.State {
	return c.limiter.State()
}

// readReason extracts the server-provided reason text from an error
// response, falling back to the standard status text.
func readReason(resp *http.Response) string {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
	}
	return http.StatusText(resp.StatusCode)
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
