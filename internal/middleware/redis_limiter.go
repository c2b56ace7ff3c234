package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/fakhrymubarak/sampledata-api/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// redisClient is swapped in tests.
var redisClient = func() redisv9.Cmdable { return redis.GetClient() }

// RedisLimiter is a fixed one-minute window counter shared by every replica.
type RedisLimiter struct {
	client redisv9.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client redisv9.Cmdable, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		now:    time.Now,
	}
}

func (l *RedisLimiter) windowKey(key string) string {
	bucket := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, bucket)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit for %s: %w", key, err)
	}
	return incr.Val() <= l.limit, nil
}
