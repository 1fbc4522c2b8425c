package cache

import (
	"context"
	"fmt"
	"time"

	"duetfm/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the global Redis client.
var RedisClient *redis.Client

// ConnectRedis initializes the Redis connection.
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// PingRoundTrip writes, reads back and deletes a probe key.
func PingRoundTrip() error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	ctx := context.Background()
	const probe = "duetfm:probe"

	if err := RedisClient.Set(ctx, probe, "ok", time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set probe key: %w", err)
	}

	val, err := RedisClient.Get(ctx, probe).Result()
	if err != nil {
		return fmt.Errorf("failed to get probe key: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("unexpected probe value: %s", val)
	}

	if err := RedisClient.Del(ctx, probe).Err(); err != nil {
		return fmt.Errorf("failed to delete probe key: %w", err)
	}

	return nil
}
