// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"sop-rag-api/internal/domain/entity"
)

// DocumentFilter 文档目录查询条件
// Levels 为 nil 表示不按分级过滤；为空切片表示不匹配任何分级文档
// IncludeGlobal 控制是否包含无租户归属的全局文档
// IncludeUnleveled 为 true 时未分级文档也计入匹配（按最低分级处理）
type DocumentFilter struct {
	TenantID         string
	IncludeGlobal    bool
	Levels           []entity.AccessLevel
	IncludeUnleveled bool
	Status           entity.DocumentStatus
}

// DocumentRepository 文档目录仓储接口
type DocumentRepository interface {
	// Create 登记文档
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 根据 ID 获取文档
	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// GetBySource 根据来源标识获取文档
	GetBySource(ctx context.Context, tenantID, source string) (*entity.Document, error)

	// Update 更新文档元数据
	Update(ctx context.Context, doc *entity.Document) error

	// UpdateStatus 更新文档状态和切片数
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int) error

	// Delete 删除文档登记项
	Delete(ctx context.Context, id string) error

	// List 按条件查询文档目录
	List(ctx context.Context, filter DocumentFilter, pagination Pagination) (*PagedResult[*entity.Document], error)
}
