// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/internal/interfaces/http/middleware"
	"sop-rag-api/pkg/logger"
)

// QueryHandler 问答处理器
type QueryHandler struct {
	svc      *rag.Service
	sessions repository.ConversationSessionRepository
}

// NewQueryHandler 创建问答处理器
func NewQueryHandler(svc *rag.Service, sessions repository.ConversationSessionRepository) *QueryHandler {
	return &QueryHandler{
		svc:      svc,
		sessions: sessions,
	}
}

// Answer 同步问答接口
// 管线结果始终以结构化形式返回：输入错误和基础设施故障
// 通过 success 标志和 metadata.error_tag 区分，授权范围内
// 检索不到内容属于正常拒答
func (h *QueryHandler) Answer(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	role := entity.Role(middleware.GetRoleFromGin(c))
	tenantID := middleware.GetTenantIDFromGin(c)
	userID := middleware.GetUserIDFromGin(c)

	if req.SessionID != "" && !h.ownsSession(c, req.SessionID, userID) {
		return
	}

	result := h.svc.Answer(ctx, req.ToQueryInput(role, tenantID, userID), req.SessionID)
	dto.Success(c, dto.NewQueryResponse(result))
}

// AnswerStream 流式问答接口 (SSE)
// token 事件之后必定有一个 final 事件，final 中的答案是经过
// 合规校验的权威版本，客户端必须用它替换已渲染的 token 流
func (h *QueryHandler) AnswerStream(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	role := entity.Role(middleware.GetRoleFromGin(c))
	tenantID := middleware.GetTenantIDFromGin(c)
	userID := middleware.GetUserIDFromGin(c)

	if req.SessionID != "" && !h.ownsSession(c, req.SessionID, userID) {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.svc.AnswerStream(c.Request.Context(), req.ToQueryInput(role, tenantID, userID), req.SessionID)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			switch ev.Type {
			case rag.StreamEventToken:
				c.SSEvent("token", dto.StreamTokenEvent{Token: ev.Token})
				return true
			case rag.StreamEventFinal:
				c.SSEvent("final", dto.StreamFinalEvent{Result: dto.NewQueryResponse(ev.Result)})
				return false
			default:
				return true
			}

		case <-c.Request.Context().Done():
			// 客户端断开
			return false
		}
	})
}

// ownsSession 校验会话存在且归属当前用户；失败时已写入响应
func (h *QueryHandler) ownsSession(c *gin.Context, sessionID, userID string) bool {
	if h.sessions == nil {
		return true
	}
	session, err := h.sessions.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load session", err, "session_id", sessionID)
		dto.InternalError(c, "failed to load session")
		return false
	}
	if session == nil {
		dto.NotFound(c, "session not found")
		return false
	}
	// 他人会话与不存在的会话同样返回 404，不暴露资源存在性
	if session.UserID != userID {
		dto.NotFound(c, "session not found")
		return false
	}
	return true
}
