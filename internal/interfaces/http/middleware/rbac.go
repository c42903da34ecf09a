// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/interfaces/http/dto"
)

// Permission 权限类型
type Permission string

const (
	PermQueryAsk    Permission = "query:ask"
	PermDocsRead    Permission = "docs:read"
	PermDocsManage  Permission = "docs:manage"
	PermAuditRead   Permission = "audit:read"
	PermAdminAccess Permission = "admin:access"
)

// permMinRole 每个权限要求的最低角色。
// 角色层级是全序的，达到最低角色即拥有该权限。
var permMinRole = map[Permission]entity.Role{
	PermQueryAsk:    entity.RoleEmployee,
	PermDocsRead:    entity.RoleEmployee,
	PermAuditRead:   entity.RoleManager,
	PermDocsManage:  entity.RoleAdmin,
	PermAdminAccess: entity.RoleAdmin,
}

// HasPermission 检查角色是否具有指定权限。
// 未知角色 Rank 为 0，低于任何已知角色，一律无权限。
func HasPermission(role entity.Role, perm Permission) bool {
	min, ok := permMinRole[perm]
	if !ok {
		return false
	}
	return role.IsValid() && role.Rank() >= min.Rank()
}

// RequirePermission 权限检查中间件，无权限返回 403
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := entity.Role(c.GetString("role"))
		if role == "" {
			abortForbidden(c, "missing role in context")
			return
		}
		if !HasPermission(role, perm) {
			abortForbidden(c, "permission denied")
			return
		}
		c.Next()
	}
}

// RequireRole 角色检查中间件，非指定角色之一返回 403
func RequireRole(roles ...entity.Role) gin.HandlerFunc {
	roleSet := make(map[entity.Role]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role := entity.Role(c.GetString("role"))
		if role == "" {
			abortForbidden(c, "missing role in context")
			return
		}
		if !roleSet[role] {
			abortForbidden(c, "role not allowed")
			return
		}
		c.Next()
	}
}

// RequireAdmin 管理员权限检查中间件
func RequireAdmin() gin.HandlerFunc {
	return RequirePermission(PermAdminAccess)
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
		Code:    http.StatusForbidden,
		Message: msg,
		TraceID: c.GetString("trace_id"),
	})
}
