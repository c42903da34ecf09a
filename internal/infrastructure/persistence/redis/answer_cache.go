// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/internal/application/rag"
)

var cacheTracer = otel.Tracer("redis.cache")

// AnswerCache 答案缓存，实现 rag.AnswerCache。
// 键由调用方构造并包含角色与租户，不同权限的用户不会命中彼此的缓存。
type AnswerCache struct {
	client *Client
}

// NewAnswerCache 创建答案缓存
func NewAnswerCache(client *Client) *AnswerCache {
	return &AnswerCache{client: client}
}

// GetResult 查询缓存；未命中返回 (nil, nil)
func (c *AnswerCache) GetResult(ctx context.Context, key string) (*rag.PipelineResult, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetResult",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get cached answer: %w", err)
	}

	var result rag.PipelineResult
	if err := json.Unmarshal(val, &result); err != nil {
		// 格式不兼容的旧值按未命中处理并清理
		span.RecordError(err)
		_ = c.client.rdb.Del(ctx, key).Err()
		return nil, nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &result, nil
}

// SetResult 写入缓存
func (c *AnswerCache) SetResult(ctx context.Context, key string, result *rag.PipelineResult, ttl time.Duration) error {
	ctx, span := cacheTracer.Start(ctx, "cache.SetResult",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	bytes, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal answer: %w", err)
	}

	if err := c.client.rdb.Set(ctx, key, bytes, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cached answer: %w", err)
	}
	return nil
}
