// Package router 提供 HTTP 路由配置
package router

import (
	"sop-rag-api/internal/config"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/handler"
	"sop-rag-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Query        *handler.QueryHandler
	Document     *handler.DocumentHandler
	Conversation *handler.ConversationHandler
	User         *handler.UserHandler
	Tenant       *handler.TenantHandler
}

// Deps 路由依赖的中间件协作方
type Deps struct {
	RateLimiter middleware.RateLimiter
	TxManager   repository.Transactor
	TenantCtx   repository.TenantContextManager
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	deps     Deps
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, deps Deps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
// 顺序敏感：认证先于租户注入，租户注入先于限流和事务
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Auth(middleware.AuthConfig{
		Secret:    r.cfg.Security.JWT.Secret,
		Issuer:    r.cfg.Security.JWT.Issuer,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}))

	r.engine.Use(middleware.Tenant())

	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, r.deps.RateLimiter))

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))

	r.engine.Use(middleware.DBTransaction(r.deps.TxManager, r.deps.TenantCtx))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/api/v1")
	RegisterV1Routes(v1, r.handlers)
}
