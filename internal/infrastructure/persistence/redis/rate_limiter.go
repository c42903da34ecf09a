package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// RateLimiter 基于 Redis ZSET 的滑动窗口限流器
// 每个键一个有序集合，成员按请求时间戳打分，窗口外的成员随请求清理
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 判定当前请求是否在配额内，并返回剩余配额
// 拒绝时不记入窗口，被限流的重试不会进一步挤占配额
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	)
	defer span.End()

	now := time.Now().UnixMilli()
	cutoff := strconv.FormatInt(now-window.Milliseconds(), 10)

	pipe := l.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, 0, err
	}

	used := int(countCmd.Val())
	if used >= limit {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, 0, nil
	}

	record := l.client.rdb.Pipeline()
	record.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(now, 10),
	})
	// 过期时间盖过整个窗口，空闲键自动回收
	record.Expire(ctx, key, window*2)
	if _, err := record.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, 0, err
	}

	remaining := limit - used - 1
	span.SetAttributes(
		attribute.Bool("ratelimit.allowed", true),
		attribute.Int("ratelimit.remaining", remaining),
	)
	return true, remaining, nil
}
