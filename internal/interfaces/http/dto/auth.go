// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"sop-rag-api/internal/domain/entity"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=32"`
	Name     string `json:"name" binding:"required,max=128"`
	TenantID string `json:"tenant_id" binding:"omitempty,uuid"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TenantID string `json:"tenant_id" binding:"omitempty,uuid"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthUserDTO 认证响应中的用户信息
type AuthUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int          `json:"expires_in"` // 秒
	User         *AuthUserDTO `json:"user,omitempty"`
}

// ToAuthUserDTO 将领域实体转换为 DTO
func ToAuthUserDTO(u *entity.User) *AuthUserDTO {
	if u == nil {
		return nil
	}
	return &AuthUserDTO{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}
}
