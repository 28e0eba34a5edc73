package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	redisx "github.com/calle1003/easel/internal/redis"
)

// Cache is a thin JSON read-through cache. Every value it holds can be
// recomputed from Postgres, so callers treat it as best effort.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return s, true, nil
}

func (c *Cache) SetString(ctx context.Context, key, val string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return out, ok, err
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		// A stale encoding is a miss, not a failure.
		return out, false, nil
	}
	return out, true, nil
}

func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.SetString(ctx, key, string(b), ttl)
}

// GetOrSetJSON loads through the cache with singleflight so a cold key is
// computed once even under a scan burst. A write failure after load is
// swallowed; the value is still returned.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight member may have filled the key already.
		if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
			return v, err
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = SetJSON(ctx, c, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected value for %s", key)
	}
	return v, nil
}

// InvalidateStats drops the cached counters after a check-in commits.
func (c *Cache) InvalidateStats(ctx context.Context, day string) error {
	return c.Del(
		ctx,
		redisx.KeyStatsToday(day),
		redisx.KeyStatsTotals(),
	)
}

func (c *Cache) InvalidatePerformance(ctx context.Context, performanceID int64) error {
	return c.Del(
		ctx,
		redisx.KeyPerformanceSummary(performanceID),
		redisx.KeyPerformanceList(),
	)
}
