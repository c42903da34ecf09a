package dto

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数，越界取边界值而不是报错
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

// Pagination 转换为仓储层分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 从查询串绑定分页参数，非法输入按默认值处理
func BindPage(c *gin.Context) PageRequest {
	var req PageRequest
	_ = c.ShouldBindQuery(&req)
	req.Normalize()
	return req
}

// BindID 从 URI 绑定资源 ID
func BindID(c *gin.Context) string {
	return c.Param("id")
}
