// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"sop-rag-api/internal/domain/entity"
)

type ConversationSessionRepository interface {
	Create(ctx context.Context, session *entity.ConversationSession) error
	GetByID(ctx context.Context, id string) (*entity.ConversationSession, error)
	Update(ctx context.Context, session *entity.ConversationSession) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.ConversationSession], error)
}

type ConversationTurnRepository interface {
	// Append 在同一事务里追加若干条消息并刷新会话活跃时间，
	// 问答的提问与回答要么同时落库要么都不落
	Append(ctx context.Context, sessionID string, turns ...*entity.ConversationTurn) error

	// ListBySession 按时间正序分页返回会话消息
	ListBySession(ctx context.Context, sessionID string, pagination Pagination) (*PagedResult[*entity.ConversationTurn], error)
}
