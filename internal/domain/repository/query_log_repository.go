// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"sop-rag-api/internal/domain/entity"
)

// QueryLogRepository 查询审计仓储接口
type QueryLogRepository interface {
	// Create 写入一条审计记录
	Create(ctx context.Context, log *entity.QueryLog) error

	// ListByTenant 按租户查询审计记录
	ListByTenant(ctx context.Context, tenantID string, pagination Pagination) (*PagedResult[*entity.QueryLog], error)

	// DeleteBefore 删除指定时间之前的记录，返回删除条数
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
