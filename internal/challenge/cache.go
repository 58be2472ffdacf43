package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// LeaderboardCache keeps computed leaderboards in Redis for a short TTL.
// Concurrent cache misses for the same challenge collapse into a single
// database query via singleflight. Staleness is bounded by the TTL; progress
// writes do not invalidate.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewLeaderboardCache constructs the cache. A nil client disables caching and
// every lookup falls through to fill.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

// Fetch returns the cached leaderboard, computing and storing it on a miss.
func (c *LeaderboardCache) Fetch(ctx context.Context, challengeID int64, limit int, fill func(context.Context) ([]LeaderboardEntry, error)) ([]LeaderboardEntry, error) {
	if c == nil || c.client == nil {
		return fill(ctx)
	}
	key := fmt.Sprintf("leaderboard:%d:%d", challengeID, limit)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entries []LeaderboardEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		// Corrupt entry; fall through and overwrite.
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		entries, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(entries); err == nil {
			c.client.Set(ctx, key, raw, c.ttl)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]LeaderboardEntry), nil
}
