// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/application/rag"
	"sop-rag-api/pkg/metrics"
)

// Repository 向量检索仓储，实现 rag.VectorStore
type Repository struct {
	client *Client
	dim    int
}

// NewRepository 创建向量检索仓储
func NewRepository(client *Client, dim int) *Repository {
	if dim <= 0 {
		dim = 1536
	}
	return &Repository{client: client, dim: dim}
}

// EnsureCollection 确保 sop_chunks 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionSopChunks)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.createCollection(ctx); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.createIndex(ctx)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionSopChunks)
}

func (r *Repository) createCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", CollectionSopChunks)))
	defer span.End()

	schema := SopChunksSchema(r.dim)
	schema.CollectionName = r.client.CollectionName(CollectionSopChunks)

	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *Repository) createIndex(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", CollectionSopChunks)))
	defer span.End()

	collName := r.client.CollectionName(CollectionSopChunks)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// buildFilterExpr 把访问过滤条件编译为 Milvus 前置过滤表达式
// 表达式在检索排序之前生效，未授权切片不会被打分或返回
func buildFilterExpr(f policy.Filter) string {
	var tenantExpr string
	if f.TenantID == "" {
		tenantExpr = `tenant_id == ""`
	} else {
		tenantExpr = fmt.Sprintf(`(tenant_id == %q || tenant_id == "")`, f.TenantID)
	}

	// 未分级切片按最低分级放行，使用 OR 条件避免依赖 IN 语法差异
	parts := make([]string, 0, len(f.Levels)+1)
	for _, l := range f.Levels {
		lv := strings.TrimSpace(string(l))
		if lv == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`access_level == %q`, lv))
	}
	parts = append(parts, `access_level == ""`)

	return tenantExpr + " && (" + strings.Join(parts, " || ") + ")"
}

// searchPartitions 搜索范围：全局分区加租户自己的分区
func (r *Repository) searchPartitions(ctx context.Context, collName, tenantID string) ([]string, error) {
	partitions := []string{GlobalPartition}
	if tenantID == "" {
		return partitions, nil
	}
	name := PartitionName(tenantID)
	has, err := r.client.milvus.HasPartition(ctx, collName, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	}
	if has {
		partitions = append(partitions, name)
	}
	return partitions, nil
}

// SearchChunks 带前置过滤的向量检索
func (r *Repository) SearchChunks(ctx context.Context, params *rag.VectorSearchParams) ([]*rag.VectorSearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	if params.Filter.Unsatisfiable {
		// 不可满足的条件不允许触达索引
		return []*rag.VectorSearchResult{}, nil
	}

	ctx, span := tracer.Start(ctx, "milvus.SearchChunks",
		trace.WithAttributes(
			attribute.String("tenant_id", params.Filter.TenantID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	collName := r.client.CollectionName(CollectionSopChunks)

	partitions, err := r.searchPartitions(ctx, collName, params.Filter.TenantID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	expr := buildFilterExpr(params.Filter)

	ef := params.CandidatePool
	if ef <= 0 {
		ef = 128
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		partitions,
		expr,
		[]string{"id", "document_id", "source", "page", "section", "access_level", "text_content"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues(CollectionSopChunks, "error").Inc()
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionSopChunks, "ok").Inc()
	metrics.MilvusSearchDuration.WithLabelValues(CollectionSopChunks).Observe(time.Since(start).Seconds())

	var out []*rag.VectorSearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			row := &rag.VectorSearchResult{
				Score: result.Scores[i],
			}
			if col, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				row.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("document_id").(*entity.ColumnVarChar); ok {
				row.DocumentID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("source").(*entity.ColumnVarChar); ok {
				row.Source = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("page").(*entity.ColumnInt64); ok {
				row.Page = int(col.Data()[i])
			}
			if col, ok := result.Fields.GetColumn("section").(*entity.ColumnVarChar); ok {
				row.Section = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("access_level").(*entity.ColumnVarChar); ok {
				row.AccessLevel = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				row.Text = col.Data()[i]
			}
			out = append(out, row)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// InsertChunks 插入切片；按切片的租户归属路由到对应分区
func (r *Repository) InsertChunks(ctx context.Context, chunks []*rag.VectorChunk) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(chunks) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "milvus.InsertChunks",
		trace.WithAttributes(attribute.Int("count", len(chunks))))
	defer span.End()

	collName := r.client.CollectionName(CollectionSopChunks)

	// 按分区分组
	byPartition := make(map[string][]*rag.VectorChunk)
	for _, c := range chunks {
		if c == nil {
			continue
		}
		p := PartitionName(c.TenantID)
		byPartition[p] = append(byPartition[p], c)
	}

	for partition, group := range byPartition {
		if err := r.ensurePartition(ctx, collName, partition); err != nil {
			span.RecordError(err)
			return err
		}

		ids := make([]string, len(group))
		vectors := make([][]float32, len(group))
		tenantIDs := make([]string, len(group))
		levels := make([]string, len(group))
		docIDs := make([]string, len(group))
		sources := make([]string, len(group))
		pages := make([]int64, len(group))
		sections := make([]string, len(group))
		texts := make([]string, len(group))

		for i, c := range group {
			ids[i] = c.ID
			vectors[i] = c.Vector
			tenantIDs[i] = c.TenantID
			levels[i] = c.AccessLevel
			docIDs[i] = c.DocumentID
			sources[i] = c.Source
			pages[i] = int64(c.Page)
			sections[i] = c.Section
			texts[i] = c.Text
		}

		_, err := r.client.milvus.Insert(ctx, collName, partition,
			entity.NewColumnVarChar("id", ids),
			entity.NewColumnFloatVector("vector", r.dim, vectors),
			entity.NewColumnVarChar("tenant_id", tenantIDs),
			entity.NewColumnVarChar("access_level", levels),
			entity.NewColumnVarChar("document_id", docIDs),
			entity.NewColumnVarChar("source", sources),
			entity.NewColumnInt64("page", pages),
			entity.NewColumnVarChar("section", sections),
			entity.NewColumnVarChar("text_content", texts),
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}
	return nil
}

// DeleteByDocument 删除文档的全部切片（随源文档删除触发）
func (r *Repository) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "milvus.DeleteByDocument",
		trace.WithAttributes(attribute.String("document_id", documentID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionSopChunks)
	partition := PartitionName(tenantID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	expr := fmt.Sprintf(`document_id == %q`, documentID)
	if err := r.client.milvus.Delete(ctx, collName, partition, expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (r *Repository) ensurePartition(ctx context.Context, collName, partition string) error {
	has, err := r.client.milvus.HasPartition(ctx, collName, partition)
	if err != nil {
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if has {
		return nil
	}
	if err := r.client.milvus.CreatePartition(ctx, collName, partition); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}
