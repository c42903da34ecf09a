// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/pkg/logger"
)

// Recovery 兜底 handler 内未被捕获的 panic。
// SSE 响应可能已写出部分事件，此时只能断开连接，不能再追加 JSON。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", r),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.Abort()
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
				TraceID: c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
