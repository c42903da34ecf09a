// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"sop-rag-api/pkg/logger"
)

// AuditConfig 审计配置
type AuditConfig struct {
	// Enabled 是否启用审计
	Enabled bool
	// SkipPaths 跳过审计的路径
	SkipPaths []string
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Audit 请求访问日志中间件。
// 问答内容级的审计走消息流异步落库，这里只记录 HTTP 访问维度；
// request_id 和 trace_id 由日志上下文自动带出，不重复列字段。
func Audit(cfg AuditConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"tenant_id", c.GetString("tenant_id"),
			"user_id", c.GetString("user_id"),
			"body_size", c.Writer.Size(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "api request", nil, fields...)
		case status >= 400:
			logger.Warn(ctx, "api request", fields...)
		default:
			logger.Info(ctx, "api request", fields...)
		}
	}
}
