// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/pkg/logger"
)

// TenantHandler 租户处理器（平台管理端）
type TenantHandler struct {
	tenants repository.TenantRepository
}

// NewTenantHandler 创建租户处理器
func NewTenantHandler(tenants repository.TenantRepository) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create 创建租户
func (h *TenantHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	exists, err := h.tenants.ExistsBySlug(ctx, req.Slug)
	if err != nil {
		logger.Error(ctx, "failed to check tenant slug", err)
		dto.InternalError(c, "failed to create tenant")
		return
	}
	if exists {
		dto.Conflict(c, "tenant slug already exists")
		return
	}

	tenant := entity.NewTenant(req.Name, req.Slug)
	if err := h.tenants.Create(ctx, tenant); err != nil {
		logger.Error(ctx, "failed to create tenant", err)
		dto.InternalError(c, "failed to create tenant")
		return
	}

	dto.Created(c, dto.ToTenantResponse(tenant))
}

// Get 获取租户
func (h *TenantHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	tenant, err := h.tenants.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get tenant", err)
		dto.InternalError(c, "failed to get tenant")
		return
	}
	if tenant == nil {
		dto.NotFound(c, "tenant not found")
		return
	}

	dto.Success(c, dto.ToTenantResponse(tenant))
}

// List 列出租户
func (h *TenantHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	result, err := h.tenants.List(ctx, page.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list tenants", err)
		dto.InternalError(c, "failed to list tenants")
		return
	}

	items := make([]*dto.TenantResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, dto.ToTenantResponse(t))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// Update 更新租户
func (h *TenantHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	tenant, err := h.tenants.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get tenant", err)
		dto.InternalError(c, "failed to update tenant")
		return
	}
	if tenant == nil {
		dto.NotFound(c, "tenant not found")
		return
	}

	req.ApplyToTenant(tenant)
	if err := h.tenants.Update(ctx, tenant); err != nil {
		logger.Error(ctx, "failed to update tenant", err)
		dto.InternalError(c, "failed to update tenant")
		return
	}

	dto.Success(c, dto.ToTenantResponse(tenant))
}

// UpdateStatus 启用或停用租户。停用立即生效，
// 该租户的用户无法再登录或提问。
func (h *TenantHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateTenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	// 删除走 DELETE 接口，状态接口只做启停
	if !req.Status.IsValid() || req.Status == entity.TenantStatusDeleted {
		dto.BadRequest(c, "status must be active or suspended")
		return
	}

	tenant, err := h.tenants.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get tenant", err)
		dto.InternalError(c, "failed to update tenant status")
		return
	}
	if tenant == nil || tenant.Status == entity.TenantStatusDeleted {
		dto.NotFound(c, "tenant not found")
		return
	}

	if err := h.tenants.UpdateStatus(ctx, tenant.ID, req.Status); err != nil {
		logger.Error(ctx, "failed to update tenant status", err)
		dto.InternalError(c, "failed to update tenant status")
		return
	}

	dto.NoContent(c)
}

// Delete 软删除租户，slug 保持占用不可复用
func (h *TenantHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	tenant, err := h.tenants.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get tenant", err)
		dto.InternalError(c, "failed to delete tenant")
		return
	}
	if tenant == nil || tenant.Status == entity.TenantStatusDeleted {
		dto.NotFound(c, "tenant not found")
		return
	}

	if err := h.tenants.Delete(ctx, tenant.ID); err != nil {
		logger.Error(ctx, "failed to delete tenant", err)
		dto.InternalError(c, "failed to delete tenant")
		return
	}

	dto.NoContent(c)
}
