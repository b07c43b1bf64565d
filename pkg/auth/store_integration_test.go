//go:build integration

package auth

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_SaveLoad(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient, "")
	ctx := context.Background()

	// Test 1: Load before any save returns ErrNoToken
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load() error = %v, want ErrNoToken", err)
	}

	// Test 2: Save and load round-trip
	if err := store.Save(ctx, "abc123"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	token, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "abc123" {
		t.Errorf("Load() = %q, want abc123", token)
	}

	// Test 3: Save replaces the token wholesale
	if err := store.Save(ctx, "def456"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "def456" {
		t.Errorf("Load() = %q, want def456", token)
	}
}

func TestRedisStore_Integration_NotifyPersistsRefresh(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient, "helix:test:token")
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	notify := store.Notify(logger)
	notify("refreshed-token")

	token, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "refreshed-token" {
		t.Errorf("Load() = %q, want refreshed-token", token)
	}
}
