package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over an ordered set keyed by hit time. Each request drops
// expired members, records itself and counts what remains inside the window.
// KEYS[1] = window key
// ARGV[1] = now_ms, ARGV[2] = window_ms, ARGV[3] = limit, ARGV[4] = hit id
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local win = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - win)
redis.call('ZADD', key, 'NX', now, ARGV[4])
redis.call('PEXPIRE', key, win)

local hits = redis.call('ZCARD', key)
if hits <= limit then
  return {1, hits, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestAt = tonumber(oldest[2]) or (now - win)
local wait = win - (now - oldestAt)
if wait < 0 then wait = 0 end
return {0, hits, wait}
`

// SlidingWindowLimiter throttles order creation per client. It fails open at
// the call site: callers treat a script error as no verdict, not as a denial.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
}

func NewSlidingWindowLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
		now:    time.Now,
	}
}

// Allow records a hit for the given subject (an IP or account id) and reports
// whether it stayed within the window, how many hits the window now holds and
// how long to wait before the next attempt can succeed.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, subject string) (bool, int64, time.Duration, error) {
	key := l.prefix + ":" + subject

	res, err := l.script.Run(ctx, l.rdb,
		[]string{key},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, hitID(),
	).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("redis.SlidingWindowLimiter.Allow: %w", err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("redis.SlidingWindowLimiter.Allow: unexpected reply %v", res)
	}

	allowed := scriptInt(arr[0]) == 1
	hits := scriptInt(arr[1])
	wait := time.Duration(scriptInt(arr[2])) * time.Millisecond
	return allowed, hits, wait, nil
}

func scriptInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}

// hitID keeps concurrent hits landing in the same millisecond from collapsing
// into one ZSET member.
func hitID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
