// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

// ConversationSessionRepository 问答会话仓储实现
type ConversationSessionRepository struct {
	client *Client
}

// NewConversationSessionRepository 创建会话仓储
func NewConversationSessionRepository(client *Client) *ConversationSessionRepository {
	return &ConversationSessionRepository{client: client}
}

// Create 创建会话
func (r *ConversationSessionRepository) Create(ctx context.Context, session *entity.ConversationSession) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationSessionRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create conversation session: %w", err)
	}
	return nil
}

// GetByID 获取会话；不存在返回 (nil, nil)，归属校验由调用方完成
func (r *ConversationSessionRepository) GetByID(ctx context.Context, id string) (*entity.ConversationSession, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationSessionRepository.GetByID")
	defer span.End()

	var session entity.ConversationSession
	err := getDB(ctx, r.client.db).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get conversation session: %w", err)
	}
	return &session, nil
}

// Update 更新会话
func (r *ConversationSessionRepository) Update(ctx context.Context, session *entity.ConversationSession) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationSessionRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update conversation session: %w", err)
	}
	return nil
}

// Delete 删除会话及其全部消息
func (r *ConversationSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationSessionRepository.Delete")
	defer span.End()

	err := getDB(ctx, r.client.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.ConversationTurn{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.ConversationSession{}, "id = ?", id).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete conversation session: %w", err)
	}
	return nil
}

// ListByUser 按最近活跃倒序分页返回用户会话
func (r *ConversationSessionRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationSession], error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationSessionRepository.ListByUser")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.ConversationSession{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count conversation sessions: %w", err)
	}

	var sessions []*entity.ConversationSession
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&sessions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation sessions: %w", err)
	}

	return repository.NewPagedResult(sessions, total, pagination), nil
}

// ConversationTurnRepository 会话消息仓储实现
type ConversationTurnRepository struct {
	client *Client
}

// NewConversationTurnRepository 创建消息仓储
func NewConversationTurnRepository(client *Client) *ConversationTurnRepository {
	return &ConversationTurnRepository{client: client}
}

// Append 追加消息并刷新会话活跃时间。
// 会话列表按 updated_at 排序，落消息必须同时把会话顶到最前，
// 因此两个写入放在同一事务里。
func (r *ConversationTurnRepository) Append(ctx context.Context, sessionID string, turns ...*entity.ConversationTurn) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationTurnRepository.Append")
	defer span.End()

	if len(turns) == 0 {
		return nil
	}

	err := getDB(ctx, r.client.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(turns).Error; err != nil {
			return err
		}
		return tx.Model(&entity.ConversationSession{}).
			Where("id = ?", sessionID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append conversation turns: %w", err)
	}
	return nil
}

// ListBySession 按时间正序分页返回会话消息
func (r *ConversationTurnRepository) ListBySession(ctx context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationTurn], error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationTurnRepository.ListBySession")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.ConversationTurn{}).Where("session_id = ?", sessionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count conversation turns: %w", err)
	}

	var turns []*entity.ConversationTurn
	if err := query.Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}

	return repository.NewPagedResult(turns, total, pagination), nil
}
