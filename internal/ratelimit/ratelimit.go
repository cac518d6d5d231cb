package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Limiter throttles vote casting with a rolling window backed by a redis
// sorted set per caller. A nil Limiter (no redis configured) allows
// everything, so the service degrades to unthrottled rather than down.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow records an attempt under key and reports whether it is within the
// window limit. When the limit is exceeded it also returns how long the
// caller should wait before the oldest attempt ages out.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.client == nil {
		return true, 0, nil
	}

	now := time.Now()
	windowStart := now.Add(-l.window)
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open; the caller decides whether to log.
		return true, 0, err
	}

	if int(card.Val()) <= l.limit {
		return true, 0, nil
	}

	// Rejected attempts must not extend the window.
	l.client.ZRem(ctx, key, member)

	retryAfter := l.window
	oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		oldestAt := time.Unix(0, int64(oldest[0].Score))
		retryAfter = oldestAt.Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
	}
	return false, retryAfter, nil
}

func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.limit
}
