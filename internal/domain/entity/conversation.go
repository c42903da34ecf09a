// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// TurnSpeaker 会话轮次的发言方
type TurnSpeaker string

const (
	TurnSpeakerUser      TurnSpeaker = "user"
	TurnSpeakerAssistant TurnSpeaker = "assistant"
)

// ConversationSession 问答会话，归属于单个用户
type ConversationSession struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  string    `json:"tenant_id" gorm:"type:uuid;index"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ConversationSession) TableName() string {
	return "conversation_sessions"
}

func NewConversationSession(tenantID, userID, title string) *ConversationSession {
	now := time.Now()
	return &ConversationSession{
		TenantID:  tenantID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ConversationTurn 会话中的一条消息
// 助手消息的 Metadata 存放管线结果元数据（来源、耗时、校验结论等）
type ConversationTurn struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID string          `json:"session_id" gorm:"type:uuid;index;not null"`
	Speaker   TurnSpeaker     `json:"speaker" gorm:"type:varchar(16);not null"`
	Content   string          `json:"content" gorm:"type:text;not null"`
	Metadata  json.RawMessage `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

func NewConversationTurn(sessionID string, speaker TurnSpeaker, content string, metadata json.RawMessage) *ConversationTurn {
	return &ConversationTurn{
		SessionID: sessionID,
		Speaker:   speaker,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
