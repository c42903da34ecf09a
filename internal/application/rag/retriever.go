package rag

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"

	"sop-rag-api/internal/application/policy"
	apperrors "sop-rag-api/pkg/errors"
	"sop-rag-api/pkg/logger"
)

var tracer = otel.Tracer("rag")

// Retriever 向量检索阶段：把问题变成向量，在过滤条件约束下取 Top-K 切片
type Retriever struct {
	embedder embedding.Embedder
	vector   VectorStore

	topK          int
	candidatePool int
	minScore      float64
}

// NewRetriever 创建检索器
// minScore <= 0 表示不做相似度下限过滤
func NewRetriever(embedder embedding.Embedder, vector VectorStore, topK, candidatePool int, minScore float64) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if candidatePool < topK {
		candidatePool = topK * 4
	}
	return &Retriever{
		embedder:      embedder,
		vector:        vector,
		topK:          topK,
		candidatePool: candidatePool,
		minScore:      minScore,
	}
}

// Retrieve 按相似度降序返回不超过 TopK 个授权切片
//
// 不可满足的过滤条件直接返回空列表，不访问索引；
// embedding 服务故障返回显式错误而不是空结果，调用方必须据此拒答。
func (r *Retriever) Retrieve(ctx context.Context, query string, filter policy.Filter) ([]RetrievedChunk, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()

	if filter.Unsatisfiable {
		logger.Debug(ctx, "retrieval skipped: unsatisfiable filter")
		return nil, nil
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed query")
	}

	results, err := r.vector.SearchChunks(ctx, &VectorSearchParams{
		Filter:        filter,
		QueryVector:   vec,
		TopK:          r.topK,
		CandidatePool: r.candidatePool,
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "vector search")
	}

	chunks := make([]RetrievedChunk, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		// COSINE: distance = 1 - cos，换算为更直观的相似度
		score := 1 - float64(res.Score)
		if r.minScore > 0 && score < r.minScore {
			continue
		}
		chunks = append(chunks, RetrievedChunk{
			ID:          res.ID,
			Source:      strings.TrimSpace(res.Source),
			Page:        res.Page,
			Section:     strings.TrimSpace(res.Section),
			AccessLevel: accessLevelFromString(res.AccessLevel),
			Text:        res.Text,
			Score:       score,
		})
	}
	return chunks, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r == nil || r.embedder == nil {
		return nil, apperrors.ErrEmbeddingFailed
	}
	v64, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 || len(v64[0]) == 0 {
		return nil, apperrors.New(apperrors.CodeEmbeddingFailed, "empty embedding result")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}
