// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"
)

// TenantContext 把当前租户登记到数据库会话，供 RLS 策略过滤行。
// set_config 的 is_local 为 TRUE，登记只在当前事务内生效，
// 事务结束后连接回池不会带着租户状态。
type TenantContext struct {
	client *Client
}

// NewTenantContext 创建租户上下文管理器
func NewTenantContext(client *Client) *TenantContext {
	return &TenantContext{client: client}
}

// SetTenant 在当前事务上登记租户
func (tc *TenantContext) SetTenant(ctx context.Context, tenantID string) error {
	err := getDB(ctx, tc.client.db).
		Exec("SELECT set_config('app.current_tenant_id', ?, TRUE)", tenantID).Error
	if err != nil {
		return fmt.Errorf("failed to set tenant context: %w", err)
	}
	return nil
}

// ClearTenant 清空登记，平台级操作在共享事务里切换身份时使用
func (tc *TenantContext) ClearTenant(ctx context.Context) error {
	err := getDB(ctx, tc.client.db).
		Exec("SELECT set_config('app.current_tenant_id', '', TRUE)").Error
	if err != nil {
		return fmt.Errorf("failed to clear tenant context: %w", err)
	}
	return nil
}
