// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/internal/config"
)

var tracer = otel.Tracer("milvus")

// Client 包装 Milvus 连接，统一集合名前缀
type Client struct {
	milvus client.Client
	config *config.MilvusConfig
}

// NewClient 建立 Milvus 连接
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	conf := client.Config{
		Address: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	if cfg.User != "" {
		conf.Username = cfg.User
		conf.Password = cfg.Password
	}

	conn, err := client.NewClient(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	return &Client{milvus: conn, config: cfg}, nil
}

// Close 关闭 Milvus 连接
func (c *Client) Close() error {
	return c.milvus.Close()
}

// HealthCheck 探测切片集合可达性
// 集合尚未建立时调用仍应成功，只要求服务端有响应
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.HealthCheck")
	defer span.End()

	if _, err := c.milvus.HasCollection(ctx, c.CollectionName(CollectionSopChunks)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// CollectionName 获取带前缀的集合名称
func (c *Client) CollectionName(name string) string {
	if c.config.CollectionPrefix != "" {
		return c.config.CollectionPrefix + "_" + name
	}
	return name
}

// HasCollection 检查集合是否存在
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "milvus.HasCollection",
		trace.WithAttributes(attribute.String("collection", name)))
	defer span.End()

	return c.milvus.HasCollection(ctx, c.CollectionName(name))
}

// LoadCollection 加载集合到内存，检索前必须完成
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "milvus.LoadCollection",
		trace.WithAttributes(attribute.String("collection", name)))
	defer span.End()

	return c.milvus.LoadCollection(ctx, c.CollectionName(name), false)
}
