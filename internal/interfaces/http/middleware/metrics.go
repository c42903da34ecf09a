// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sop-rag-api/pkg/metrics"
)

// Metrics HTTP 指标采集中间件。
// 标签用注册的路由模板而非真实路径，避免路径参数撑爆基数。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			// 未匹配到路由的请求（404）归并为一个标签
			route = "unmatched"
		}
		if route == "/metrics" {
			c.Next()
			return
		}

		method := c.Request.Method
		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(size))
		}

		start := time.Now()
		c.Next()

		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
