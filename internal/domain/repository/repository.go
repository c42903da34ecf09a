// Package repository 定义数据访问层接口
package repository

import "context"

// TxKey 事务上下文键；事务句柄经 context 下发给各仓储
type TxKey struct{}

// Transactor 事务管理接口
// fn 返回错误时整个事务回滚，嵌套调用复用外层事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination 分页参数，经 NewPagination 构造后保证合法
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 规整分页参数：页码至少为 1，页大小限定在 [1, 100]
func NewPagination(page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Offset 计算偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 获取限制数量
func (p Pagination) Limit() int {
	return p.PageSize
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 创建分页结果并计算总页数
func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	pages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return &PagedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}

// HasNext 是否还有后续页
func (r *PagedResult[T]) HasNext() bool {
	return r.Page < r.TotalPages
}
