// Package visitor tracks recently active visitors behind an explicit store
// abstraction with TTL-based eviction, instead of a process-global array.
package visitor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records visitor activity and answers how many are currently active.
type Store interface {
	Record(ctx context.Context, visitorID string) error
	ActiveCount(ctx context.Context) (int64, error)
}

const activeSetKey = "visitors:active"

// RedisStore keeps visitors in a sorted set scored by last-seen time.
// Entries older than the window are evicted on read.
type RedisStore struct {
	client redis.UniversalClient
	window time.Duration
}

// NewRedisStore builds a visitor store with the given activity window.
func NewRedisStore(client redis.UniversalClient, window time.Duration) *RedisStore {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &RedisStore{client: client, window: window}
}

// Record marks the visitor as seen now.
func (s *RedisStore) Record(ctx context.Context, visitorID string) error {
	if visitorID == "" {
		return nil
	}
	err := s.client.ZAdd(ctx, activeSetKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: visitorID,
	}).Err()
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// ActiveCount evicts stale entries and returns the number of visitors seen
// within the window.
func (s *RedisStore) ActiveCount(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.window).Unix()
	if err := s.client.ZRemRangeByScore(ctx, activeSetKey, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("evict stale visitors: %w", err)
	}
	count, err := s.client.ZCard(ctx, activeSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return count, nil
}
