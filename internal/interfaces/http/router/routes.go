// Package router 提供 HTTP 路由配置
package router

import (
	"sop-rag-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}

	// 问答管线
	query := v1.Group("/query")
	query.Use(middleware.RequirePermission(middleware.PermQueryAsk))
	{
		query.POST("", h.Query.Answer)
		query.POST("/stream", h.Query.AnswerStream) // SSE，豁免请求级事务
	}

	// 文档目录
	documents := v1.Group("/documents")
	{
		documents.GET("", middleware.RequirePermission(middleware.PermDocsRead), h.Document.List)

		// 管理端登记与维护
		documents.POST("", middleware.RequirePermission(middleware.PermDocsManage), h.Document.Create)
		documents.GET("/:id", middleware.RequirePermission(middleware.PermDocsManage), h.Document.Get)
		documents.PUT("/:id", middleware.RequirePermission(middleware.PermDocsManage), h.Document.Update)
		documents.DELETE("/:id", middleware.RequirePermission(middleware.PermDocsManage), h.Document.Delete)
	}

	// 会话管理
	sessions := v1.Group("/sessions")
	{
		sessions.GET("", h.Conversation.ListSessions)
		sessions.POST("", h.Conversation.CreateSession)
		sessions.GET("/:id/turns", h.Conversation.ListTurns)
		sessions.DELETE("/:id", h.Conversation.DeleteSession)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("/me", h.User.Me)
		users.GET("", middleware.RequireAdmin(), h.User.List)
		users.PUT("/:id/role", middleware.RequireAdmin(), h.User.UpdateRole)
	}

	// 租户管理（平台管理端）
	tenants := v1.Group("/tenants")
	tenants.Use(middleware.RequireAdmin())
	{
		tenants.GET("", h.Tenant.List)
		tenants.POST("", h.Tenant.Create)
		tenants.GET("/:id", h.Tenant.Get)
		tenants.PUT("/:id", h.Tenant.Update)
		tenants.PUT("/:id/status", h.Tenant.UpdateStatus)
		tenants.DELETE("/:id", h.Tenant.Delete)
	}
}
