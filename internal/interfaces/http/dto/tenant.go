// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"sop-rag-api/internal/domain/entity"
)

// CreateTenantRequest 创建租户请求
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	Slug string `json:"slug" binding:"required,max=64,alphanum"`
}

// UpdateTenantRequest 更新租户请求
type UpdateTenantRequest struct {
	Name     *string                `json:"name"`
	Settings *entity.TenantSettings `json:"settings"`
}

// ApplyToTenant 更新实体
func (r *UpdateTenantRequest) ApplyToTenant(t *entity.Tenant) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Settings != nil {
		t.Settings = r.Settings
	}
	t.UpdatedAt = time.Now()
}

// UpdateTenantStatusRequest 更新租户状态请求
type UpdateTenantStatusRequest struct {
	Status entity.TenantStatus `json:"status" binding:"required"`
}

// TenantResponse 租户响应
type TenantResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Slug      string                 `json:"slug"`
	Settings  *entity.TenantSettings `json:"settings,omitempty"`
	Status    entity.TenantStatus    `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ToTenantResponse 实体转换为响应
func ToTenantResponse(t *entity.Tenant) *TenantResponse {
	if t == nil {
		return nil
	}
	return &TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Settings:  t.Settings,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
