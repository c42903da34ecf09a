// Package messaging 提供基于 Redis Stream 的消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/internal/application/rag"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/tracer"
)

var msgTracer = otel.Tracer("messaging")

// Producer 消息生产者。流按 MaxLen 近似截断，
// 消费积压超过上限时牺牲最老的消息保护 Redis 内存。
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 发布消息到指定流，返回流内消息 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := msgTracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	streamID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", streamID))
	return streamID, nil
}

// PublishQueryAudit 发布问答审计事件，实现 rag.AuditPublisher。
// 审计投递是旁路：调用方只记日志，不因投递失败让问答失败。
func (p *Producer) PublishQueryAudit(ctx context.Context, event *rag.QueryAuditEvent) error {
	if event == nil {
		return nil
	}

	msg, err := NewMessage(uuid.NewString(), MsgTypeQueryAudit, event.TenantID, event)
	if err != nil {
		return err
	}
	msg.SetMetadata(MetaOutcome, event.Outcome)
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata(MetaRequestID, reqID)
	}
	if traceID := tracer.TraceID(ctx); traceID != "" {
		msg.SetMetadata(MetaTraceID, traceID)
	}

	_, err = p.Publish(ctx, StreamQueryAudit, msg)
	return err
}
