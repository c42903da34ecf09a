// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"sop-rag-api/internal/domain/entity"
)

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title" binding:"omitempty,max=255"`
}

// SessionResponse 会话响应
type SessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToSessionResponse 实体转换为响应
func ToSessionResponse(s *entity.ConversationSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// TurnResponse 会话轮次响应
type TurnResponse struct {
	ID        string          `json:"id"`
	Speaker   string          `json:"speaker"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToTurnResponse 实体转换为响应
func ToTurnResponse(t *entity.ConversationTurn) *TurnResponse {
	if t == nil {
		return nil
	}
	return &TurnResponse{
		ID:        t.ID,
		Speaker:   string(t.Speaker),
		Content:   t.Content,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt,
	}
}
