package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"canteen-menu/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL = 10 * time.Minute
	cacheKeyPrefix  = "menu:daily:"
)

// CachedStore is a read-through Redis cache in front of another Store. Cache
// failures are logged and the inner store answers instead.
type CachedStore struct {
	inner  Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"store": "redis-cache"}),
	}
}

func cacheKey(date time.Time) string {
	return cacheKeyPrefix + dayKey(date)
}

func (s *CachedStore) SaveMenu(ctx context.Context, date time.Time, menuText string) error {
	if err := s.inner.SaveMenu(ctx, date, menuText); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKey(date))
	return nil
}

func (s *CachedStore) SaveWeeklyMenu(ctx context.Context, entries []Entry) error {
	if err := s.inner.SaveWeeklyMenu(ctx, entries); err != nil {
		return err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, cacheKey(e.Date))
	}
	s.invalidate(ctx, keys...)
	return nil
}

func (s *CachedStore) GetMenuForDate(ctx context.Context, date time.Time) (Record, bool, error) {
	key := cacheKey(date)

	raw, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			return rec, true, nil
		}
		s.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	rec, found, err := s.inner.GetMenuForDate(ctx, date)
	if err != nil || !found {
		return rec, found, err
	}

	if payload, err := json.Marshal(rec); err == nil {
		if err := s.redis.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}
	return rec, true, nil
}

func (s *CachedStore) GetMenusInRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	return s.inner.GetMenusInRange(ctx, from, to)
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		s.logger.Warn("cache unreachable", map[string]interface{}{"error": err})
	}
	return s.inner.Ping(ctx)
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{"keys": keys, "error": err})
	}
}

var _ Store = (*CachedStore)(nil)
