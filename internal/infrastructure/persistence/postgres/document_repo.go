// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

// DocumentRepository 文档目录仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档目录仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 登记文档
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文档
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.Document
	if err := db.First(&doc, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetBySource 根据来源标识获取文档
func (r *DocumentRepository) GetBySource(ctx context.Context, tenantID, source string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetBySource")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.Document
	if err := db.First(&doc, "tenant_id = ? AND source = ?", tenantID, source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document by source: %w", err)
	}
	return &doc, nil
}

// Update 更新文档元数据
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// UpdateStatus 更新文档状态和切片数
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	updates := map[string]interface{}{
		"status":      status,
		"chunk_count": chunkCount,
	}
	if err := db.Model(&entity.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// Delete 删除文档登记项
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Document{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// List 按条件查询文档目录
// 分级过滤与向量检索的前置过滤保持同一套语义：
// 未分级文档按最低分级处理，IncludeUnleveled 为 true 时计入匹配
func (r *DocumentRepository) List(ctx context.Context, filter repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Document{})

	if filter.TenantID != "" {
		if filter.IncludeGlobal {
			query = query.Where("tenant_id = ? OR tenant_id = ''", filter.TenantID)
		} else {
			query = query.Where("tenant_id = ?", filter.TenantID)
		}
	} else if filter.IncludeGlobal {
		query = query.Where("tenant_id = ''")
	}

	if filter.Levels != nil {
		levels := make([]string, 0, len(filter.Levels))
		for _, l := range filter.Levels {
			levels = append(levels, string(l))
		}
		if filter.IncludeUnleveled {
			query = query.Where("access_level IN ? OR access_level = ''", levels)
		} else {
			query = query.Where("access_level IN ?", levels)
		}
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []*entity.Document
	if err := query.Order("title ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return repository.NewPagedResult(docs, total, pagination), nil
}
