package repository

import (
	"context"

	"sop-rag-api/internal/domain/entity"
)

// UserRepository 用户仓储接口。
// 邮箱在租户内唯一，平台级用户（TenantID 为空）之间也唯一。
// 未找到统一返回 (nil, nil)。
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// GetByEmail 在指定租户内按邮箱获取用户
	GetByEmail(ctx context.Context, tenantID, email string) (*entity.User, error)

	// Update 更新用户
	Update(ctx context.Context, user *entity.User) error

	// Delete 删除用户
	Delete(ctx context.Context, id string) error

	// ListByTenant 获取租户用户列表
	ListByTenant(ctx context.Context, tenantID string, pagination Pagination) (*PagedResult[*entity.User], error)

	// UpdateRole 更新用户角色，下一次请求起按新角色过滤检索范围
	UpdateRole(ctx context.Context, id string, role entity.Role) error

	// UpdateLastLogin 更新最后登录时间
	UpdateLastLogin(ctx context.Context, id string) error

	// ExistsByEmail 检查邮箱在租户内是否已注册
	ExistsByEmail(ctx context.Context, tenantID, email string) (bool, error)
}
