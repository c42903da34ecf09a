// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/infrastructure/persistence/milvus"
	"sop-rag-api/internal/infrastructure/persistence/postgres"
	"sop-rag-api/internal/infrastructure/persistence/redis"
)

const readinessTimeout = 2 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg     *postgres.Client
	redis  *redis.Client
	milvus *milvus.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *HealthHandler {
	return &HealthHandler{
		pg:     pg,
		redis:  redisClient,
		milvus: milvusClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// probe 单个依赖的就绪探测。required 为假的依赖故障不拉低就绪态，
// 只在响应里标记 degraded。
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

func (h *HealthHandler) probes() []probe {
	var ps []probe
	if h.pg != nil {
		ps = append(ps, probe{name: "postgres", required: true, check: h.pg.HealthCheck})
	}
	if h.redis != nil {
		ps = append(ps, probe{name: "redis", required: true, check: h.redis.HealthCheck})
	}
	if h.milvus != nil {
		// Milvus 故障时问答降级为拒答，服务本身仍可用
		ps = append(ps, probe{name: "milvus", required: false, check: h.milvus.HealthCheck})
	}
	return ps
}

// Health 健康检查接口
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Live 存活检查接口
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]*readinessCheck)
	ready := true

	for _, p := range h.probes() {
		result := &readinessCheck{Status: "ok"}
		checks[p.name] = result

		start := time.Now()
		err := p.check(ctx)
		result.LatencyMs = time.Since(start).Milliseconds()
		if err == nil {
			continue
		}

		result.Error = err.Error()
		if p.required {
			result.Status = "error"
			ready = false
		} else {
			result.Status = "degraded"
		}
	}

	// 必需依赖未注入视同故障
	for _, name := range []string{"postgres", "redis"} {
		if _, ok := checks[name]; !ok {
			checks[name] = &readinessCheck{Status: "missing", Error: name + " client not configured"}
			ready = false
		}
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
