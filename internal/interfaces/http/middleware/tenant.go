// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"

	"sop-rag-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TenantContextKey 租户上下文 Key 类型
type TenantContextKey string

const (
	// TenantIDKey 租户 ID 上下文 Key
	TenantIDKey TenantContextKey = "tenant_id"
	// UserIDKey 用户 ID 上下文 Key
	UserIDKey TenantContextKey = "user_id"
	// RoleKey 角色上下文 Key
	RoleKey TenantContextKey = "role"
)

// Tenant 多租户上下文中间件
// 把认证得到的租户、用户、角色注入 request context，供仓储层 RLS 和日志使用
// 租户 ID 为空是合法状态：无租户归属的用户只能看到全局语料
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if tenantID := c.GetString("tenant_id"); tenantID != "" {
			ctx = context.WithValue(ctx, TenantIDKey, tenantID)
			ctx = logger.WithContext(ctx, logger.TenantIDKey, tenantID)
		}
		if userID := c.GetString("user_id"); userID != "" {
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = logger.WithContext(ctx, logger.UserIDKey, userID)
		}
		if role := c.GetString("role"); role != "" {
			ctx = context.WithValue(ctx, RoleKey, role)
			ctx = logger.WithContext(ctx, logger.RoleKey, role)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantID 从 context 中获取租户 ID
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUserID 从 context 中获取用户 ID
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetRole 从 context 中获取角色
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}

// GetTenantIDFromGin 从 Gin Context 中获取租户 ID
func GetTenantIDFromGin(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetRoleFromGin 从 Gin Context 中获取角色
func GetRoleFromGin(c *gin.Context) string {
	return c.GetString("role")
}
