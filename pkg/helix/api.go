// Package helix exposes the typed endpoint surface of the Twitch Helix
// API on top of the request executor and page collector. Parameters are
// validated before any network call; paginated resources are collected
// through the pagination package.
package helix

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/twitchdc/twitch-helix-client/pkg/client"
	"github.com/twitchdc/twitch-helix-client/pkg/pagination"
)

// MaxIDsPerCall is the Helix limit on identifiers per lookup request.
const MaxIDsPerCall = 100

// MaxPageSize is the largest per-page record count Helix serves.
const MaxPageSize = 100

// NoCap collects every page of a paginated resource. A cap of zero
// collects nothing without issuing a request.
const NoCap = pagination.NoCap

// API is the typed Helix endpoint surface.
type API struct {
	client    *client.Client
	collector *pagination.Collector
	logger    zerolog.Logger
}

// New creates an API over a new client built from cfg.
func New(cfg client.Config) (*API, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(c), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c *client.Client) *API {
	logger := log.With().Str("component", "helix").Logger()
	return &API{
		client:    c,
		collector: pagination.NewCollector(c, logger),
		logger:    logger,
	}
}

// Client returns the underlying request executor, for callers that need
// raw endpoint access or the observed rate limit state.
func (a *API) Client() *client.Client {
	return a.client
}

// decodeRecords unmarshals raw envelope records into typed values.
func decodeRecords[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, raw := range records {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}

// setIf adds a query parameter only when the value is present; absent
// values are omitted entirely, never serialized empty.
func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// addAll adds one query entry per value.
func addAll(params url.Values, key string, values []string) {
	for _, value := range values {
		params.Add(key, value)
	}
}

// setTime adds an RFC3339 timestamp parameter when the value is set.
func setTime(params url.Values, key string, t time.Time) {
	if !t.IsZero() {
		params.Set(key, t.Format(time.RFC3339))
	}
}

// countSet returns how many of the given selectors are present.
func countSet(selectors ...bool) int {
	n := 0
	for _, set := range selectors {
		if set {
			n++
		}
	}
	return n
}
