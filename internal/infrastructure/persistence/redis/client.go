// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"sop-rag-api/internal/config"
)

var tracer = otel.Tracer("redis")

// 建连探测的超时，与业务读写超时无关
const connectProbeTimeout = 5 * time.Second

// Client Redis 客户端，承载答案缓存、限流窗口和审计消息流
type Client struct {
	rdb *redis.Client
}

// NewClient 创建 Redis 客户端并验证连通性
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Redis 获取底层客户端，供消息流生产者和消费者直接使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close 关闭连接池
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
