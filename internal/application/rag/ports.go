package rag

import (
	"context"

	"sop-rag-api/internal/application/policy"
)

// VectorStore 定义管线对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
// 实现必须把 Filter 下推为索引的前置过滤条件，严禁先检索后过滤。
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	SearchChunks(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
	InsertChunks(ctx context.Context, chunks []*VectorChunk) error
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
}

// VectorSearchParams 向量检索参数
type VectorSearchParams struct {
	Filter        policy.Filter
	QueryVector   []float32
	TopK          int
	CandidatePool int
}

// VectorSearchResult 向量检索结果行，Score 为索引返回的原始距离
type VectorSearchResult struct {
	ID          string
	Score       float32
	DocumentID  string
	Source      string
	Page        int
	Section     string
	AccessLevel string
	Text        string
}

// VectorChunk 写入向量库的切片行
type VectorChunk struct {
	ID          string
	DocumentID  string
	TenantID    string
	Source      string
	AccessLevel string
	Page        int
	Section     string
	Text        string
	Vector      []float32
}
