// Package embedding 提供向量化服务客户端
package embedding

import (
	"context"
	"fmt"

	"sop-rag-api/internal/config"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// NewEinoEmbedder 创建基于 Eino 的 Embedder
// 查询与切片入库必须使用同一个模型，否则相似度不可比
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
