package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: cache helpers live here
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes cached values
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.client.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	return c.client.Redis().Del(ctx, full...).Err()
}

// Predefined TTLs
const (
	TTLShort = 1 * time.Minute  // leaderboards of the open contest
	TTLLong  = 1 * time.Hour    // stats of closed contests
	TTLDaily = 24 * time.Hour   // published chart snapshots
)

// SnapshotKey identifies one published chart week
func SnapshotKey(chartID string, date time.Time) string {
	return fmt.Sprintf("chart:%s:%s", chartID, date.Format("2006-01-02"))
}

// LeaderboardKey identifies a leaderboard page. contestID 0 means all-time.
func LeaderboardKey(contestID int64, limit int) string {
	if contestID == 0 {
		return fmt.Sprintf("leaderboard:all_time:%d", limit)
	}
	return fmt.Sprintf("leaderboard:contest:%d:%d", contestID, limit)
}

// ContestStatsKey identifies the stored stats of a closed contest
func ContestStatsKey(contestID int64) string {
	return fmt.Sprintf("contest:%d:stats", contestID)
}
