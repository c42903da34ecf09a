// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/pkg/logger"
)

type rollbackOnlyError struct {
	status int
}

func (e rollbackOnlyError) Error() string {
	return fmt.Sprintf("rollback only: status=%d", e.status)
}

// DBTransaction 为每个 HTTP 请求管理请求级数据库事务，并设置多租户安全上下文。
//
// PostgreSQL 的 set_config(..., is_local=TRUE) 仅在当前事务内生效，
// 所以 RLS 的租户上下文必须绑定在事务中设置。
// 提交/回滚按最终响应判定：状态码 >= 400 或 Gin 记录了错误即回滚。
func DBTransaction(tx repository.Transactor, tenantCtx repository.TenantContextManager) gin.HandlerFunc {
	if tx == nil || tenantCtx == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// SSE 流式接口豁免：长连接不能占用请求级事务，
		// 否则连接池会被长时间运行的问答请求耗尽。
		// 流式 Handler 内部按需开启短事务。
		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/stream") {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		tenantID := GetTenantID(ctx)

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			// 租户上下文必须在事务内、任何查询前设置，否则 RLS 看不到租户数据
			if tenantID != "" {
				if err := tenantCtx.SetTenant(txCtx, tenantID); err != nil {
					return err
				}
			}

			c.Request = c.Request.WithContext(txCtx)

			c.Next()

			status := c.Writer.Status()
			if status >= http.StatusBadRequest {
				return rollbackOnlyError{status: status}
			}
			if len(c.Errors) > 0 {
				return rollbackOnlyError{status: status}
			}
			return nil
		})

		if err == nil {
			return
		}

		// 业务主动回滚时响应已由 Handler 写入
		var rbErr rollbackOnlyError
		if errors.As(err, &rbErr) {
			return
		}

		logger.Error(ctx, "db transaction failed", err)
		if !c.Writer.Written() && c.Writer.Status() < http.StatusBadRequest {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
				TraceID: c.GetString("trace_id"),
			})
		}
	}
}
