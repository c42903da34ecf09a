package entity

import (
	"time"
)

// TenantStatus 租户状态。删除是软删除，状态置为 deleted 后
// 记录保留，slug 永久占用不可复用。
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// IsValid 检查是否为已知状态
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusDeleted:
		return true
	}
	return false
}

// TenantSettings 租户设置
type TenantSettings struct {
	DefaultLanguage string `json:"default_language,omitempty"`
	// RetentionDays 查询日志保留天数，0 表示永久保留
	RetentionDays int `json:"retention_days,omitempty"`
}

// Tenant 租户实体
type Tenant struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Settings  *TenantSettings `json:"settings,omitempty"`
	Status    TenantStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewTenant 创建新租户，初始状态为 active
func NewTenant(name, slug string) *Tenant {
	now := time.Now()
	return &Tenant{
		Name:      name,
		Slug:      slug,
		Status:    TenantStatusActive,
		Settings:  &TenantSettings{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive 只有 active 状态的租户可以登录和提问
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
