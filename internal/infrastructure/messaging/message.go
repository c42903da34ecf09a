// Package messaging 提供基于 Redis Stream 的消息队列实现
package messaging

import (
	"encoding/json"
	"math"
	"time"
)

// 元数据键，生产端写入、消费端还原日志上下文
const (
	MetaRequestID = "request_id"
	MetaTraceID   = "trace_id"
	MetaOutcome   = "outcome"
)

// Stream 流定义
type Stream string

const (
	// StreamQueryAudit 问答审计事件流，由 audit-worker 消费落库
	StreamQueryAudit Stream = "stream:query:audit"
)

// DLQStream 对应的死信流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

const (
	ConsumerGroupAuditWriter ConsumerGroup = "cg-audit-writer"
)

// MsgTypeQueryAudit 问答审计消息类型
const MsgTypeQueryAudit = "query_audit"

// Message 流上传输的消息信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	TenantID  string            `json:"tenant_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建消息并序列化载荷
func NewMessage(id, msgType, tenantID string, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		TenantID:  tenantID,
		Payload:   raw,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据，缺失返回空串
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// BackoffConfig 重投退避配置
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 第 retryCount 次重投前应等待的时长，指数增长封顶于 Max
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(retryCount))
	if d > float64(c.Max) || d < 0 {
		return c.Max
	}
	return time.Duration(d)
}
