package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/service/cache"
)

// RedisSnapshotCache keeps the latest snapshot record per symbol so the
// HTTP surface can serve lookups without touching pipeline state.
type RedisSnapshotCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisSnapshotCache creates the cache sink. ttl 0 keeps entries
// indefinitely.
func NewRedisSnapshotCache(c *cache.RedisCache, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{cache: c, ttl: ttl}
}

func snapshotKey(symbol string) string {
	return "conecast:snapshot:latest:" + symbol
}

// Emit overwrites the symbol's latest snapshot.
func (s *RedisSnapshotCache) Emit(ctx context.Context, rec *models.SnapshotRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.cache.SetBytes(ctx, snapshotKey(rec.Symbol), b, s.ttl); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent record for symbol, or nil when none is
// cached.
func (s *RedisSnapshotCache) Latest(ctx context.Context, symbol string) (*models.SnapshotRecord, error) {
	b, ok, err := s.cache.GetBytes(ctx, snapshotKey(symbol))
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var rec models.SnapshotRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &rec, nil
}

// Close releases the underlying client.
func (s *RedisSnapshotCache) Close() error {
	return s.cache.Close()
}

var _ drepo.SnapshotSink = (*RedisSnapshotCache)(nil)
