// Package auth manages the Twitch app access token: it mints tokens via the
// OAuth client-credentials flow, hands the current value to the client, and
// notifies an optional observer whenever a refresh succeeds.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/twitchdc/twitch-helix-client/pkg/transport"
)

// DefaultTokenURL is the Twitch OAuth token endpoint.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// DefaultExchangeTimeout bounds a single token exchange. The OAuth endpoint
// is fast; a hung exchange should not stall a data request for long.
const DefaultExchangeTimeout = 2 * time.Second

// Prometheus metrics for token lifecycle.
var (
	helixTokenRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_token_refreshes_total",
		Help: "Total number of successful app access token refreshes",
	})

	helixTokenRefreshFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_token_refresh_failures_total",
		Help: "Total number of failed app access token exchanges",
	})
)

// NotifyFunc receives the new token after a successful refresh. It lets a
// host application persist the credential. Failures inside the callback
// must not abort the refresh; panics are recovered and logged.
type NotifyFunc func(token string)

// Config holds the token manager configuration.
type Config struct {
	// ClientID and ClientSecret identify the application (REQUIRED).
	ClientID     string
	ClientSecret string

	// TokenURL overrides the OAuth endpoint (default: DefaultTokenURL).
	TokenURL string

	// InitialToken seeds the manager with a previously persisted token.
	// When empty, the first Refresh mints one.
	InitialToken string

	// Notify is invoked with the new token after each successful refresh.
	Notify NotifyFunc

	// ExchangeTimeout bounds a single exchange, transport retries included
	// (default: DefaultExchangeTimeout).
	ExchangeTimeout time.Duration

	// Retry configures transport-level retries for the exchange POST.
	// Out-of-range values fall back to transport defaults.
	Retry transport.Config

	// HTTPClient overrides the client used for the exchange (for testing).
	HTTPClient *http.Client
}

// Manager owns the current app access token. The token is replaced
// wholesale on refresh, never partially mutated; reads always see the most
// recently completed refresh.
type Manager struct {
	mu         sync.RWMutex
	token      string
	exchange   *clientcredentials.Config
	notify     NotifyFunc
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewManager creates a token manager. It performs no network I/O; call
// Refresh to mint the first token when no initial token is configured.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = DefaultExchangeTimeout
	}

	logger := log.With().Str("component", "auth").Logger()

	// The exchange POST rides the same retrying transport as data calls;
	// a transient failure of the OAuth endpoint must not surface as a
	// rejected exchange.
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout:   cfg.ExchangeTimeout,
			Transport: transport.NewRetrying(nil, cfg.Retry, logger),
		}
	}

	// Twitch expects client_id/client_secret/grant_type in the POST body.
	exchange := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &Manager{
		token:      cfg.InitialToken,
		exchange:   exchange,
		notify:     cfg.Notify,
		httpClient: cfg.HTTPClient,
		timeout:    cfg.ExchangeTimeout,
		logger:     logger,
	}, nil
}

// ClientID returns the application identifier. Helix requires it as a
// Client-Id header on every data request.
func (m *Manager) ClientID() string {
	return m.exchange.ClientID
}

// Token returns the current app access token. Empty until the first
// refresh completes when no initial token was configured.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Refresh mints a new app access token via the client-credentials exchange
// and stores it. Concurrent refreshes are safe; the last completed exchange
// wins. Returns an AuthError when the exchange is rejected.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.exchange.Token(ctx)
	if err != nil {
		helixTokenRefreshFailuresTotal.Inc()

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			m.logger.Error().
				Int("status", retrieveErr.Response.StatusCode).
				Msg("Token exchange rejected")
			return "", &AuthError{
				StatusCode: retrieveErr.Response.StatusCode,
				Message:    "token exchange rejected",
				Err:        err,
			}
		}

		m.logger.Error().Err(err).Msg("Token exchange failed")
		return "", &AuthError{Message: "token exchange failed", Err: err}
	}

	m.mu.Lock()
	m.token = tok.AccessToken
	m.mu.Unlock()

	helixTokenRefreshesTotal.Inc()
	m.logger.Debug().Msg("Refreshed app access token")

	m.notifyRefresh(tok.AccessToken)

	return tok.AccessToken, nil
}

// notifyRefresh delivers the new token to the registered observer.
// A panicking callback must not abort the refresh.
func (m *Manager) notifyRefresh(token string) {
	if m.notify == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn().Interface("panic", r).Msg("Token refresh callback panicked")
		}
	}()

	m.notify(token)
}
