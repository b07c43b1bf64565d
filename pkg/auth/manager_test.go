package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twitchdc/twitch-helix-client/pkg/transport"
)

// newTokenServer returns a mock OAuth endpoint issuing sequential tokens.
func newTokenServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()

	var issued int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token request form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		if got := r.PostForm.Get("client_id"); got != "test-client" {
			t.Errorf("client_id = %q, want test-client", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "test-secret" {
			t.Errorf("client_secret = %q, want test-secret", got)
		}

		n := atomic.AddInt32(&issued, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))

	return server, &issued
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:        "valid config",
			config:      Config{ClientID: "id", ClientSecret: "secret"},
			expectError: false,
		},
		{
			name:        "missing client id",
			config:      Config{ClientSecret: "secret"},
			expectError: true,
		},
		{
			name:        "missing client secret",
			config:      Config{ClientID: "id"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewManager(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if manager == nil {
				t.Fatal("Manager is nil")
			}
			if manager.exchange.TokenURL != DefaultTokenURL {
				t.Errorf("TokenURL = %q, want default", manager.exchange.TokenURL)
			}
		})
	}
}

func TestManager_Refresh(t *testing.T) {
	server, _ := newTokenServer(t)
	defer server.Close()

	var notified []string
	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     server.URL,
		Notify:       func(token string) { notified = append(notified, token) },
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if got := manager.Token(); got != "" {
		t.Errorf("Token() before refresh = %q, want empty", got)
	}

	token, err := manager.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if token != "token-1" {
		t.Errorf("Refresh() = %q, want token-1", token)
	}
	if got := manager.Token(); got != "token-1" {
		t.Errorf("Token() = %q, want token-1", got)
	}
	if len(notified) != 1 || notified[0] != "token-1" {
		t.Errorf("notified = %v, want [token-1]", notified)
	}

	// A second refresh replaces the token wholesale.
	if _, err := manager.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := manager.Token(); got != "token-2" {
		t.Errorf("Token() after second refresh = %q, want token-2", got)
	}
}

func TestManager_Refresh_RetriesTransientExchangeFailure(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-1",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     server.URL,
		Retry: transport.Config{
			MaxAttempts:     3,
			InitialInterval: 1 * time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2.0,
		},
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	token, err := manager.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v, a transient 503 must be retried", err)
	}
	if token != "token-1" {
		t.Errorf("Refresh() = %q, want token-1", token)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("exchange requests = %d, want 2", got)
	}
}

func TestManager_Refresh_ExchangeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"status":403,"message":"invalid client secret"}`)
	}))
	defer server.Close()

	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "wrong-secret",
		TokenURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	_, err = manager.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() error = nil, want AuthError")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Refresh() error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", authErr.StatusCode)
	}
	if got := manager.Token(); got != "" {
		t.Errorf("Token() after failed refresh = %q, want empty", got)
	}
}

func TestManager_Refresh_NotifyPanicDoesNotAbort(t *testing.T) {
	server, _ := newTokenServer(t)
	defer server.Close()

	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     server.URL,
		Notify:       func(token string) { panic("store unavailable") },
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	token, err := manager.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v, callback panic must not abort refresh", err)
	}
	if token != "token-1" {
		t.Errorf("Refresh() = %q, want token-1", token)
	}
	if got := manager.Token(); got != "token-1" {
		t.Errorf("Token() = %q, want token-1", got)
	}
}

func TestManager_Refresh_Concurrent(t *testing.T) {
	server, issued := newTokenServer(t)
	defer server.Close()

	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	const refreshers = 8
	var wg sync.WaitGroup
	for i := 0; i < refreshers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(issued); got != refreshers {
		t.Errorf("issued tokens = %d, want %d", got, refreshers)
	}

	// Last writer wins; the stored token must be one that was issued.
	final := manager.Token()
	valid := false
	for i := 1; i <= refreshers; i++ {
		if final == fmt.Sprintf("token-%d", i) {
			valid = true
		}
	}
	if !valid {
		t.Errorf("Token() = %q, not an issued token", final)
	}
}

func TestManager_InitialToken(t *testing.T) {
	manager, err := NewManager(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		InitialToken: "persisted-token",
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if got := manager.Token(); got != "persisted-token" {
		t.Errorf("Token() = %q, want persisted-token", got)
	}
}
