package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemNS = "easel:v1:idem"

	// A key holds either the in-flight marker or the finished response.
	lockMarker = "LOCK"
	resPrefix  = "RES:"
)

func KeyIdemOrder(performanceID int64, idemKey string) string {
	return fmt.Sprintf("%s:orders:%d:%s", idemNS, performanceID, idemKey)
}

// IdempotencyStore guards replayed order submissions: the first request takes
// a lock, finishes the work and stores its JSON response; replays get the
// stored response back.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, lockMarker, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key, jsonPayload string) error {
	return s.rdb.Set(ctx, key, resPrefix+jsonPayload, s.ttl).Err()
}

// GetResult returns the stored response for a finished request. A key that is
// absent or still locked reports no result.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	if res, ok := strings.CutPrefix(v, resPrefix); ok {
		return res, true, nil
	}
	return "", false, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return false, nil
	case err != nil:
		return false, err
	}
	return v == lockMarker, nil
}

// Release drops the lock so the client can retry after a failed attempt.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
