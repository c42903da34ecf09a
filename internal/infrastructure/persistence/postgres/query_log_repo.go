// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

// QueryLogRepository 查询审计仓储实现
type QueryLogRepository struct {
	client *Client
}

// NewQueryLogRepository 创建查询审计仓储
func NewQueryLogRepository(client *Client) *QueryLogRepository {
	return &QueryLogRepository{client: client}
}

// Create 写入一条审计记录
func (r *QueryLogRepository) Create(ctx context.Context, log *entity.QueryLog) error {
	ctx, span := tracer.Start(ctx, "postgres.QueryLogRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create query log: %w", err)
	}
	return nil
}

// ListByTenant 按租户查询审计记录
func (r *QueryLogRepository) ListByTenant(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.QueryLog], error) {
	ctx, span := tracer.Start(ctx, "postgres.QueryLogRepository.ListByTenant")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.QueryLog{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count query logs: %w", err)
	}

	var logs []*entity.QueryLog
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&logs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}

	return repository.NewPagedResult(logs, total, pagination), nil
}

// DeleteBefore 删除指定时间之前的记录，返回删除条数
func (r *QueryLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.QueryLogRepository.DeleteBefore")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("created_at < ?", before).Delete(&entity.QueryLog{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete query logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
