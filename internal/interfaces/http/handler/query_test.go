package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

type fakeSessionRepo struct {
	sessions map[string]*entity.ConversationSession
}

func (f *fakeSessionRepo) Create(context.Context, *entity.ConversationSession) error { return nil }

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*entity.ConversationSession, error) {
	return f.sessions[id], nil
}

func (f *fakeSessionRepo) Update(context.Context, *entity.ConversationSession) error { return nil }

func (f *fakeSessionRepo) Delete(context.Context, string) error { return nil }

func (f *fakeSessionRepo) ListByUser(_ context.Context, _ string, p repository.Pagination) (*repository.PagedResult[*entity.ConversationSession], error) {
	return repository.NewPagedResult([]*entity.ConversationSession{}, 0, p), nil
}

func queryTestRouter(h *QueryHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenant_id", "tenant-1")
		c.Set("user_id", userID)
		c.Set("role", string(entity.RoleEmployee))
		c.Next()
	})
	r.POST("/query", h.Answer)
	return r
}

func TestAnswerRejectsForeignSessionAsNotFound(t *testing.T) {
	repo := &fakeSessionRepo{sessions: map[string]*entity.ConversationSession{
		"sess-1": {ID: "sess-1", TenantID: "tenant-1", UserID: "user-b"},
	}}
	r := queryTestRouter(NewQueryHandler(nil, repo), "user-a")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"query": "remote work policy", "session_id": "sess-1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// 他人会话与不存在的会话响应一致，不暴露资源存在性
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "session not found")
}

func TestAnswerRejectsUnknownSessionAsNotFound(t *testing.T) {
	repo := &fakeSessionRepo{sessions: map[string]*entity.ConversationSession{}}
	r := queryTestRouter(NewQueryHandler(nil, repo), "user-a")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"query": "remote work policy", "session_id": "sess-missing"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
