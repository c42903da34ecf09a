package rag

import (
	"context"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

// DocumentSummary 目录查询返回的文档摘要
type DocumentSummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Source      string             `json:"source"`
	AccessLevel entity.AccessLevel `json:"access_level"`
	ChunkCount  int                `json:"chunk_count"`
}

// Catalog 文档目录服务：复用访问策略过滤目录，不经过检索和生成
type Catalog struct {
	policy *policy.AccessPolicy
	docs   repository.DocumentRepository
}

// NewCatalog 创建目录服务
func NewCatalog(p *policy.AccessPolicy, docs repository.DocumentRepository) *Catalog {
	return &Catalog{policy: p, docs: docs}
}

// ListAuthorizedDocuments 列出角色在租户内有权访问的已入库文档
// 未识别的角色返回空结果（fail-closed），与检索过滤同一套策略
func (c *Catalog) ListAuthorizedDocuments(ctx context.Context, role entity.Role, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*DocumentSummary], error) {
	ctx, span := tracer.Start(ctx, "rag.list_authorized_documents")
	defer span.End()

	levels := c.policy.AccessibleLevels(role)
	if len(levels) == 0 {
		return repository.NewPagedResult([]*DocumentSummary{}, 0, pagination), nil
	}

	page, err := c.docs.List(ctx, repository.DocumentFilter{
		TenantID:         tenantID,
		IncludeGlobal:    true,
		Levels:           levels,
		IncludeUnleveled: true,
		Status:           entity.DocumentStatusIndexed,
	}, pagination)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	summaries := make([]*DocumentSummary, 0, len(page.Items))
	for _, d := range page.Items {
		if d == nil {
			continue
		}
		summaries = append(summaries, &DocumentSummary{
			ID:          d.ID,
			Title:       d.Title,
			Source:      d.Source,
			AccessLevel: d.AccessLevel,
			ChunkCount:  d.ChunkCount,
		})
	}
	return repository.NewPagedResult(summaries, page.Total, pagination), nil
}
