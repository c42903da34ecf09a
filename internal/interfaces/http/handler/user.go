// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/internal/interfaces/http/middleware"
	"sop-rag-api/pkg/logger"
)

// UserHandler 用户处理器
type UserHandler struct {
	users repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// Me 获取当前用户信息
func (h *UserHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, middleware.GetUserIDFromGin(c))
	if err != nil {
		logger.Error(ctx, "failed to get current user", err)
		dto.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// List 列出租户内的用户（管理端）
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	result, err := h.users.ListByTenant(ctx, middleware.GetTenantIDFromGin(c), page.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list users", err)
		dto.InternalError(c, "failed to list users")
		return
	}

	items := make([]*dto.UserResponse, 0, len(result.Items))
	for _, u := range result.Items {
		items = append(items, dto.ToUserResponse(u))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// UpdateRole 更新用户角色（管理端）
// 角色决定问答和目录接口可见的文档分级，变更立即生效
func (h *UserHandler) UpdateRole(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to update role")
		return
	}
	if user == nil || user.TenantID != middleware.GetTenantIDFromGin(c) {
		dto.NotFound(c, "user not found")
		return
	}

	if err := h.users.UpdateRole(ctx, user.ID, entity.Role(req.Role)); err != nil {
		logger.Error(ctx, "failed to update role", err, "user_id", user.ID)
		dto.InternalError(c, "failed to update role")
		return
	}

	user.Role = entity.Role(req.Role)
	dto.Success(c, dto.ToUserResponse(user))
}
