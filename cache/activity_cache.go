package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisActivityStore keeps the per-user last-activity timestamp that drives
// the idle-timeout policy. Keys live slightly longer than the idle limit so
// stale entries clean themselves up.
type RedisActivityStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisActivityStore wraps the given client. idleLimit is the inactivity
// window after which a session is treated as signed out.
func NewRedisActivityStore(client *redis.Client, idleLimit time.Duration) *RedisActivityStore {
	return &RedisActivityStore{
		client: client,
		ttl:    idleLimit + 24*time.Hour,
	}
}

func activityKey(userID int64) string {
	return fmt.Sprintf("activity:%d", userID)
}

// Touch records an authenticated interaction at the given time.
func (s *RedisActivityStore) Touch(ctx context.Context, userID int64, at time.Time) error {
	return s.client.Set(ctx, activityKey(userID), strconv.FormatInt(at.UnixMilli(), 10), s.ttl).Err()
}

// Last returns the stored last-activity timestamp, if any.
func (s *RedisActivityStore) Last(ctx context.Context, userID int64) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, activityKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read activity for user %d: %w", userID, err)
	}
	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt activity value for user %d: %w", userID, err)
	}
	return time.UnixMilli(millis), true, nil
}

// Clear removes the stored timestamp; called on sign-out.
func (s *RedisActivityStore) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, activityKey(userID)).Err()
}
