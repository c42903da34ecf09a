// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/internal/interfaces/http/middleware"
	"sop-rag-api/pkg/logger"
)

// ConversationHandler 会话处理器
type ConversationHandler struct {
	sessions repository.ConversationSessionRepository
	turns    repository.ConversationTurnRepository
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(sessions repository.ConversationSessionRepository, turns repository.ConversationTurnRepository) *ConversationHandler {
	return &ConversationHandler{
		sessions: sessions,
		turns:    turns,
	}
}

// CreateSession 创建会话
func (h *ConversationHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session := entity.NewConversationSession(
		middleware.GetTenantIDFromGin(c),
		middleware.GetUserIDFromGin(c),
		req.Title,
	)
	if err := h.sessions.Create(ctx, session); err != nil {
		logger.Error(ctx, "failed to create session", err)
		dto.InternalError(c, "failed to create session")
		return
	}

	dto.Created(c, dto.ToSessionResponse(session))
}

// ListSessions 列出当前用户的会话
func (h *ConversationHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	result, err := h.sessions.ListByUser(ctx, middleware.GetUserIDFromGin(c), page.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list sessions", err)
		dto.InternalError(c, "failed to list sessions")
		return
	}

	items := make([]*dto.SessionResponse, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, dto.ToSessionResponse(s))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// ListTurns 列出会话轮次，按时间升序
func (h *ConversationHandler) ListTurns(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := h.loadOwnedSession(c)
	if !ok {
		return
	}

	page := dto.BindPage(c)
	result, err := h.turns.ListBySession(ctx, session.ID, page.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list turns", err, "session_id", session.ID)
		dto.InternalError(c, "failed to list turns")
		return
	}

	items := make([]*dto.TurnResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, dto.ToTurnResponse(t))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// DeleteSession 删除会话
func (h *ConversationHandler) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := h.loadOwnedSession(c)
	if !ok {
		return
	}

	if err := h.sessions.Delete(ctx, session.ID); err != nil {
		logger.Error(ctx, "failed to delete session", err, "session_id", session.ID)
		dto.InternalError(c, "failed to delete session")
		return
	}

	dto.NoContent(c)
}

// loadOwnedSession 加载会话并校验归属；失败时已写入响应
func (h *ConversationHandler) loadOwnedSession(c *gin.Context) (*entity.ConversationSession, bool) {
	ctx := c.Request.Context()

	session, err := h.sessions.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get session", err)
		dto.InternalError(c, "failed to get session")
		return nil, false
	}
	if session == nil {
		dto.NotFound(c, "session not found")
		return nil, false
	}
	if session.UserID != middleware.GetUserIDFromGin(c) {
		dto.NotFound(c, "session not found")
		return nil, false
	}
	return session, true
}
