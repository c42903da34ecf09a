package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/metrics"
)

// AnswerCache 答案缓存 port，未命中返回 (nil, nil)
type AnswerCache interface {
	GetResult(ctx context.Context, key string) (*PipelineResult, error)
	SetResult(ctx context.Context, key string, result *PipelineResult, ttl time.Duration) error
}

// QueryAuditEvent 查询审计事件，投递到消息流后由 audit-worker 落库
type QueryAuditEvent struct {
	TenantID    string      `json:"tenant_id,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	Role        entity.Role `json:"role"`
	Query       string      `json:"query"`
	Outcome     string      `json:"outcome"`
	ErrorTag    string      `json:"error_tag,omitempty"`
	ChunkCount  int         `json:"chunk_count"`
	FactCount   int         `json:"fact_count"`
	SourceCount int         `json:"source_count"`
	DurationMs  int64       `json:"duration_ms"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// AuditPublisher 审计事件发布 port
type AuditPublisher interface {
	PublishQueryAudit(ctx context.Context, event *QueryAuditEvent) error
}

// Service 问答服务：在核心管线外补上缓存、会话持久化和审计投递
type Service struct {
	orch  *Orchestrator
	cache AnswerCache
	audit AuditPublisher
	turns repository.ConversationTurnRepository

	cacheTTL time.Duration
	group    singleflight.Group
}

// NewService 创建问答服务
// cache、audit、会话仓储均可为 nil，对应能力自动关闭
func NewService(
	orch *Orchestrator,
	cache AnswerCache,
	audit AuditPublisher,
	turns repository.ConversationTurnRepository,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		orch:     orch,
		cache:    cache,
		audit:    audit,
		turns:    turns,
		cacheTTL: cacheTTL,
	}
}

// Answer 执行一次问答并处理横切关注点
// sessionID 非空时把问答双方的消息落到会话记录
func (s *Service) Answer(ctx context.Context, in QueryInput, sessionID string) *PipelineResult {
	key := s.cacheKey(in)
	if cached := s.lookupCache(ctx, key); cached != nil {
		s.persistTurns(ctx, sessionID, in, cached)
		s.publishAudit(ctx, in, cached)
		return cached
	}

	// 相同键的并发未命中只触发一次管线执行，其余调用共享结果。
	// 执行用脱离取消的 context：首个调用方断开不应让共享结果变成取消错误，
	// 执行时长仍由各阶段超时约束。
	execCtx := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(key, func() (any, error) {
		return s.orch.AnswerQuery(execCtx, in), nil
	})
	result := v.(*PipelineResult)

	s.storeCache(ctx, key, result)
	s.persistTurns(ctx, sessionID, in, result)
	s.publishAudit(ctx, in, result)
	return result
}

// AnswerStream 流式问答；final 信封产出后才做持久化和审计，
// 调用方中途断开的轮次不会被当作已完成的会话记录
func (s *Service) AnswerStream(ctx context.Context, in QueryInput, sessionID string) <-chan StreamEvent {
	upstream := s.orch.AnswerQueryStream(ctx, in)
	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		for ev := range upstream {
			if ev.Type == StreamEventFinal && ev.Result != nil {
				s.persistTurns(ctx, sessionID, in, ev.Result)
				s.publishAudit(ctx, in, ev.Result)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// cacheKey 角色与租户参与键控，不同权限身份之间不存在缓存穿透
func (s *Service) cacheKey(in QueryInput) string {
	h := sha256.New()
	payload, _ := json.Marshal(struct {
		Query    string      `json:"q"`
		Role     entity.Role `json:"r"`
		TenantID string      `json:"t"`
		Models   ModelConfig `json:"m"`
	}{in.Query, in.Role, in.TenantID, in.Models})
	h.Write(payload)
	return "answer:" + hex.EncodeToString(h.Sum(nil))
}

func (s *Service) lookupCache(ctx context.Context, key string) *PipelineResult {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	cached, err := s.cache.GetResult(ctx, key)
	if err != nil {
		logger.Warn(ctx, "answer cache lookup failed", "error", err.Error())
		return nil
	}
	if cached == nil {
		metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.AnswerCacheTotal.WithLabelValues("hit").Inc()
	return cached
}

// storeCache 只缓存校验通过的正面答案；拒答和失败不缓存，
// 语料或权限变化后它们应立即反映出来
func (s *Service) storeCache(ctx context.Context, key string, result *PipelineResult) {
	if s.cache == nil || s.cacheTTL <= 0 || result == nil {
		return
	}
	if !result.Success || result.Answer == RefusalText {
		return
	}
	if err := s.cache.SetResult(ctx, key, result, s.cacheTTL); err != nil {
		logger.Warn(ctx, "answer cache store failed", "error", err.Error())
	}
}

// persistTurns 把提问与回答作为一对消息落到会话记录
func (s *Service) persistTurns(ctx context.Context, sessionID string, in QueryInput, result *PipelineResult) {
	if s.turns == nil || sessionID == "" || result == nil {
		return
	}
	meta, err := json.Marshal(result.Metadata)
	if err != nil {
		meta = nil
	}
	err = s.turns.Append(ctx, sessionID,
		entity.NewConversationTurn(sessionID, entity.TurnSpeakerUser, in.Query, nil),
		entity.NewConversationTurn(sessionID, entity.TurnSpeakerAssistant, result.Answer, meta),
	)
	if err != nil {
		logger.Warn(ctx, "persist conversation turns failed", "session_id", sessionID, "error", err.Error())
	}
}

func (s *Service) publishAudit(ctx context.Context, in QueryInput, result *PipelineResult) {
	if s.audit == nil || result == nil {
		return
	}
	event := &QueryAuditEvent{
		TenantID:    in.TenantID,
		UserID:      in.UserID,
		Role:        in.Role,
		Query:       in.Query,
		Outcome:     outcomeLabel(result),
		ErrorTag:    result.Metadata.ErrorTag,
		ChunkCount:  result.Metadata.ChunkCount,
		FactCount:   result.Metadata.FactCount,
		SourceCount: len(result.Sources),
		DurationMs:  result.Metadata.Timings.TotalMs,
		OccurredAt:  time.Now(),
	}
	if err := s.audit.PublishQueryAudit(ctx, event); err != nil {
		logger.Warn(ctx, "publish query audit failed", "error", err.Error())
	}
}
