// Package testutil provides testing utilities for the Helix client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock Helix response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockHelix is a configurable mock Helix server for testing. It serves
// both the data API and an OAuth token endpoint at /oauth2/token.
type MockHelix struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	TokenExchanges    int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

// NewMockHelix creates a new mock Helix server.
func NewMockHelix() *MockHelix {
	mock := &MockHelix{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		if r.URL.Path == "/oauth2/token" {
			mock.TokenExchanges++
		} else {
			mock.RequestCount++
			mock.LastRequestHeader = r.Header.Clone()
			query := map[string]string{}
			for key := range r.URL.Query() {
				query[key] = r.URL.Query().Get(key)
			}
			mock.LastQuery = query
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockHelix) URL() string {
	return m.server.URL
}

// BaseURL returns the data API root with a trailing slash.
func (m *MockHelix) BaseURL() string {
	return m.server.URL + "/"
}

// TokenURL returns the OAuth endpoint URL.
func (m *MockHelix) TokenURL() string {
	return m.server.URL + "/oauth2/token"
}

// Close shuts down the mock server.
func (m *MockHelix) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHelix) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenExchanges = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockHelix) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockHelix) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence configures a path to serve the given responses in order,
// repeating the last one once the script is exhausted.
func (m *MockHelix) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	served := 0

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := served
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		served++
		mu.Unlock()

		resp := responses[idx]
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetTokenHandler installs a token endpoint that issues sequential tokens
// (token-1, token-2, ...).
func (m *MockHelix) SetTokenHandler() {
	var mu sync.Mutex
	issued := 0

	m.SetHandler("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		issued++
		n := issued
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
}

// GetRequestCount returns the number of data requests made to the server.
func (m *MockHelix) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenExchanges returns the number of OAuth exchanges performed.
func (m *MockHelix) GetTokenExchanges() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenExchanges
}

// GetLastQuery returns the query parameters of the most recent data request.
func (m *MockHelix) GetLastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler provides a healthy empty Helix response.
func (m *MockHelix) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setRateLimitHeaders(w, 799, time.Now().Add(60*time.Second))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data": []}`))
}

func setRateLimitHeaders(w http.ResponseWriter, remaining int, resetAt time.Time) {
	w.Header().Set("Ratelimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("Ratelimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// PageBody builds a Helix envelope body with n records and an optional
// cursor. Records are objects {"id":"<offset+i>"}.
func PageBody(n, offset int, cursor string) string {
	return pageBody(n, offset, cursor, 0)
}

// PageBodyWithTotal builds an envelope that also carries a top-level
// total field, as the users/follows resource does.
func PageBodyWithTotal(n, offset int, cursor string, total int) string {
	return pageBody(n, offset, cursor, total)
}

func pageBody(n, offset int, cursor string, total int) string {
	body := map[string]any{}

	records := make([]map[string]string, n)
	for i := range records {
		records[i] = map[string]string{"id": strconv.Itoa(offset + i)}
	}
	body["data"] = records

	if cursor != "" {
		body["pagination"] = map[string]string{"cursor": cursor}
	}
	if total > 0 {
		body["total"] = total
	}

	encoded, _ := json.Marshal(body)
	return string(encoded)
}

// NewHealthyResponse creates a standard 200 OK response with rate-limit
// headers and the given envelope body.
func NewHealthyResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Ratelimit-Remaining": "799",
			"Ratelimit-Reset":     strconv.FormatInt(time.Now().Add(60*time.Second).Unix(), 10),
			"Content-Type":        "application/json; charset=utf-8",
		},
	}
}

// NewThrottledResponse creates a 429 response announcing an exhausted
// bucket that resets at the given time.
func NewThrottledResponse(resetAt time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too Many Requests", "status": 429, "message": "rate limit exceeded"}`,
		Headers: map[string]string{
			"Ratelimit-Remaining": "0",
			"Ratelimit-Reset":     strconv.FormatInt(resetAt.Unix(), 10),
			"Content-Type":        "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "Unauthorized", "status": 401, "message": "invalid access token"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal Server Error", "status": 500, "message": "something broke"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
