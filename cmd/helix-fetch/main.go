package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/twitchdc/twitch-helix-client/pkg/auth"
	"github.com/twitchdc/twitch-helix-client/pkg/client"
	"github.com/twitchdc/twitch-helix-client/pkg/helix"
	"github.com/twitchdc/twitch-helix-client/pkg/logging"
)

func main() {
	broadcaster := flag.String("broadcaster", "", "Broadcaster ID to fetch clips for (omit to fetch top games)")
	capRecords := flag.Int("cap", parseCap(getEnv("HELIX_CAP", ""), 100), "Maximum number of records to fetch (-1 for everything)")
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
		Output: os.Stderr,
	})

	clientID := getEnv("TWITCH_CLIENT_ID", "")
	clientSecret := getEnv("TWITCH_CLIENT_SECRET", "")
	if clientID == "" || clientSecret == "" {
		logger.Fatal().Msg("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET are required")
	}

	ctx := context.Background()

	authCfg := auth.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}

	// With Redis configured, refreshed tokens are shared across processes.
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}

		store := auth.NewRedisStore(redisClient, "")
		authCfg.Notify = store.Notify(logger)

		if token, err := store.Load(ctx); err == nil {
			authCfg.InitialToken = token
			logger.Debug().Msg("Loaded persisted app access token")
		} else if !errors.Is(err, auth.ErrNoToken) {
			logger.Warn().Err(err).Msg("Failed to load persisted token")
		}
	}

	tokens, err := auth.NewManager(authCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token manager")
	}

	if tokens.Token() == "" {
		if _, err := tokens.Refresh(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to mint app access token")
		}
	}

	api, err := helix.New(client.DefaultConfig(tokens))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Helix client")
	}

	start := time.Now()
	var count int
	if *broadcaster != "" {
		count, err = fetchClips(ctx, api, *broadcaster, *capRecords)
	} else {
		count, err = fetchTopGames(ctx, api, *capRecords)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Fetch failed")
	}

	logger.Info().
		Int("records", count).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
}

func fetchClips(ctx context.Context, api *helix.API, broadcaster string, cap int) (int, error) {
	clips, err := api.GetClips(ctx, helix.ClipsParams{
		BroadcasterID: broadcaster,
		Cap:           cap,
	})
	if err != nil {
		return 0, err
	}
	return len(clips), printRecords(clips)
}

func fetchTopGames(ctx context.Context, api *helix.API, cap int) (int, error) {
	games, err := api.GetTopGames(ctx, cap)
	if err != nil {
		return 0, err
	}
	return len(games), printRecords(games)
}

// printRecords writes one JSON line per record to stdout.
func printRecords[T any](records []T) error {
	encoder := json.NewEncoder(os.Stdout)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCap(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
