// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"sop-rag-api/internal/domain/entity"
)

// UserResponse 用户响应
type UserResponse struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserResponse 实体转换为响应
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// UpdateUserRoleRequest 更新用户角色请求（管理端）
type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=employee manager admin"`
}
