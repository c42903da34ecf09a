// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CORS 跨域中间件
// 通配来源时不下发凭据，凭据模式要求显式列出来源
func CORS(cfg CORSConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{"X-Request-ID", "X-Trace-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(conf.AllowMethods) == 0 {
		conf.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(conf.AllowHeaders) == 0 {
		conf.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	}

	wildcard := len(cfg.AllowedOrigins) == 0
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}
	if wildcard {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.AllowedOrigins
		conf.AllowCredentials = true
	}

	return cors.New(conf)
}
