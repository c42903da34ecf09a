// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径（前缀匹配）
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/api/v1/auth/login",
	"/api/v1/auth/register",
	"/api/v1/auth/refresh",
}

// Auth 认证中间件。
// 校验 Bearer AccessToken 并把租户、用户、角色注入 Gin Context，
// 下游的角色过滤和审计都以这里注入的身份为准。
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		if !cfg.Enabled || skipAuth(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abortUnauthorized(c, "token expired")
				return
			}
			abortUnauthorized(c, "invalid token")
			return
		}

		// RefreshToken 只能换取新令牌，不能直接访问业务接口
		if claims.TokenType != utils.TokenAccess {
			abortUnauthorized(c, "invalid token type")
			return
		}

		c.Set("tenant_id", claims.TenantID)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

func skipAuth(skipPaths []string, path string) bool {
	for _, prefix := range skipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Code:    http.StatusUnauthorized,
		Message: msg,
		TraceID: c.GetString("trace_id"),
	})
}
