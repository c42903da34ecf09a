// Package middleware 提供 HTTP 中间件
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/pkg/logger"
)

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把当前 span 的标识带进日志上下文和响应头，
// 客户端报障时用 X-Trace-ID 直接定位整条链路
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID := sc.TraceID().String()
		spanID := sc.SpanID().String()

		c.Set("trace_id", traceID)
		c.Set("span_id", spanID)

		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}
