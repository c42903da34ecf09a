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

// UserRepository 用户仓储实现
// 租户 ID 为空串表示平台级用户（无租户归属），按空串精确匹配
type UserRepository struct {
	client *Client
}

// NewUserRepository 创建用户仓储
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// byTenantEmail 邮箱在租户内唯一，平台级用户以空租户参与唯一性
func byTenantEmail(db *gorm.DB, tenantID, email string) *gorm.DB {
	return db.Where("tenant_id = ? AND email = ?", tenantID, email)
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取用户；不存在返回 (nil, nil)
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByID")
	defer span.End()

	var user entity.User
	err := getDB(ctx, r.client.db).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail 按租户和邮箱获取用户；不存在返回 (nil, nil)
func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByEmail")
	defer span.End()

	var user entity.User
	err := byTenantEmail(getDB(ctx, r.client.db), tenantID, email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// ExistsByEmail 检查租户内邮箱是否已注册
func (r *UserRepository) ExistsByEmail(ctx context.Context, tenantID, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ExistsByEmail")
	defer span.End()

	var count int64
	err := byTenantEmail(getDB(ctx, r.client.db).Model(&entity.User{}), tenantID, email).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check email exists: %w", err)
	}
	return count > 0, nil
}

// Update 更新用户
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateRole 变更用户角色
// 角色直接决定检索过滤条件和目录可见范围，写入即生效
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateRole")
	defer span.End()

	res := getDB(ctx, r.client.db).Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update user role: %w", res.Error)
	}
	return nil
}

// UpdateLastLogin 记录最后登录时间
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateLastLogin")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// Delete 删除用户
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.User{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListByTenant 分页列出租户用户
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ListByTenant")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.User{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*entity.User
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&users).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return repository.NewPagedResult(users, total, pagination), nil
}
