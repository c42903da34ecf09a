package repository

import "context"

// TenantContextManager 在数据库会话上登记当前租户，配合 PostgreSQL RLS
// 把目录、会话、审计表的可见范围收敛到单个租户。
// tenantID 为空表示平台级操作，不登记任何租户。
type TenantContextManager interface {
	SetTenant(ctx context.Context, tenantID string) error
	ClearTenant(ctx context.Context) error
}
