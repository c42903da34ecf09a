// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

// TenantRepository 租户仓储实现
// 删除采用状态标记，slug 永久占用，避免新租户复用旧租户的标识
type TenantRepository struct {
	client *Client
}

// NewTenantRepository 创建租户仓储
func NewTenantRepository(client *Client) *TenantRepository {
	return &TenantRepository{client: client}
}

// notDeleted 过滤已标记删除的租户
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", entity.TenantStatusDeleted)
}

func (r *TenantRepository) fetchOne(ctx context.Context, db *gorm.DB) (*entity.Tenant, error) {
	var tenant entity.Tenant
	err := db.First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Create 创建租户
func (r *TenantRepository) Create(ctx context.Context, tenant *entity.Tenant) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(tenant).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取租户；不存在返回 (nil, nil)
// 不过滤状态，挂起和已删除租户的管理操作仍需读到实体
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.GetByID")
	defer span.End()

	tenant, err := r.fetchOne(ctx, getDB(ctx, r.client.db).Where("id = ?", id))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// GetBySlug 根据 Slug 获取租户；已删除租户视同不存在
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.GetBySlug")
	defer span.End()

	tenant, err := r.fetchOne(ctx, notDeleted(getDB(ctx, r.client.db)).Where("slug = ?", slug))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}
	return tenant, nil
}

// Update 更新租户
func (r *TenantRepository) Update(ctx context.Context, tenant *entity.Tenant) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(tenant).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// UpdateStatus 更新租户状态
// 挂起的租户在认证层被整体拒绝，状态写入即对所有请求生效
func (r *TenantRepository) UpdateStatus(ctx context.Context, id string, status entity.TenantStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.UpdateStatus")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	return nil
}

// Delete 标记删除租户，记录本身保留
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Delete")
	defer span.End()

	if err := r.UpdateStatus(ctx, id, entity.TenantStatusDeleted); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}

// List 分页列出租户，不含已删除
func (r *TenantRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Tenant], error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.List")
	defer span.End()

	query := notDeleted(getDB(ctx, r.client.db).Model(&entity.Tenant{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count tenants: %w", err)
	}

	var tenants []*entity.Tenant
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&tenants).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	return repository.NewPagedResult(tenants, total, pagination), nil
}

// ExistsBySlug 检查 Slug 是否被占用，包含已删除租户
func (r *TenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.ExistsBySlug")
	defer span.End()

	var count int64
	err := getDB(ctx, r.client.db).Model(&entity.Tenant{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check slug exists: %w", err)
	}
	return count > 0, nil
}
