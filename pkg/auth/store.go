package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is where RedisStore keeps the token.
const DefaultRedisKey = "helix:auth:access_token"

// ErrNoToken is returned by Load when no token has been persisted yet.
var ErrNoToken = errors.New("no stored token")

// Store persists app access tokens so other processes can reuse them
// instead of minting their own.
type Store interface {
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (string, error)
}

// RedisStore persists the token in Redis under a fixed key.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Redis-backed token store. An empty key uses
// DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		redis: client,
		key:   key,
	}
}

// Save stores the token. Tokens are opaque and replaced wholesale.
func (s *RedisStore) Save(ctx context.Context, token string) error {
	if err := s.redis.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Load returns the persisted token, or ErrNoToken when absent.
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// Notify adapts the store into a refresh callback. Persistence failures
// are logged and swallowed: they must not abort the refresh.
func (s *RedisStore) Notify(logger zerolog.Logger) NotifyFunc {
	return func(token string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.Save(ctx, token); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}
}
