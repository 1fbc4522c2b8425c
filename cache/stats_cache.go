package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"duetfm/model"

	"github.com/redis/go-redis/v9"
)

// StatsTTL bounds how stale a cached weekly stats block may get.
const StatsTTL = 5 * time.Minute

func statsKey(profileID int64) string {
	return fmt.Sprintf("weeklystats:%d", profileID)
}

// GetWeeklyStats returns the cached weekly stats for a profile, or nil on miss.
func GetWeeklyStats(ctx context.Context, profileID int64) (*model.WeeklyStats, error) {
	if RedisClient == nil {
		return nil, nil
	}

	val, err := RedisClient.Get(ctx, statsKey(profileID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read weekly stats cache: %w", err)
	}

	var stats model.WeeklyStats
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, fmt.Errorf("corrupt weekly stats cache entry: %w", err)
	}
	return &stats, nil
}

// SetWeeklyStats caches the computed weekly stats for a profile.
func SetWeeklyStats(ctx context.Context, profileID int64, stats *model.WeeklyStats) error {
	if RedisClient == nil {
		return nil
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal weekly stats: %w", err)
	}
	return RedisClient.Set(ctx, statsKey(profileID), payload, StatsTTL).Err()
}

// InvalidateWeeklyStats drops the cached block after a play is recorded or a
// favorite toggled, so the next fetch recomputes.
func InvalidateWeeklyStats(ctx context.Context, profileIDs ...int64) {
	if RedisClient == nil {
		return
	}
	for _, id := range profileIDs {
		RedisClient.Del(ctx, statsKey(id))
	}
}
