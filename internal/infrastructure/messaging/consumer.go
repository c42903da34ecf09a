// Package messaging 提供基于 Redis Stream 的消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/metrics"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer 审计流消费者。
// 流上只承载一种业务消息，处理器在创建时绑定，不做按类型分发。
// 失败的消息留在 pending 表按退避重投，超过重试上限移入死信流。
type Consumer struct {
	client       *redis.Client
	handler      MessageHandler
	stream       Stream
	group        ConsumerGroup
	consumerName string

	blockTimeout time.Duration
	sweepEvery   time.Duration
	takeoverIdle time.Duration
	retryLimit   int
	backoff      BackoffConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream       Stream
	Group        ConsumerGroup
	ConsumerName string
	// BlockTimeout 单次 XREADGROUP 的阻塞上限，也决定重投扫描的最小间隔
	BlockTimeout time.Duration
	// ClaimInterval 多久检查一次其他实例遗留的消息
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建消费者，handler 处理流上的全部消息
func NewConsumer(client *redis.Client, handler MessageHandler, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Consumer{
		client:       client,
		handler:      handler,
		stream:       cfg.Stream,
		group:        cfg.Group,
		consumerName: cfg.ConsumerName,
		blockTimeout: cfg.BlockTimeout,
		sweepEvery:   cfg.ClaimInterval,
		// 接管阈值远大于最大退避，确保只接管真正失联实例的消息
		takeoverIdle: maxDuration(5*time.Minute, cfg.Backoff.Max*2),
		retryLimit:   cfg.RetryLimit,
		backoff:      cfg.Backoff,
		stopCh:       make(chan struct{}),
	}
}

// Start 启动消费循环
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Consumer) run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumerName,
	)

	lastTakeover := time.Now().Add(-c.sweepEvery)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			log.Info("consumer stopped")
			return
		default:
		}

		// 自己的 pending 每轮都扫，失联实例的消息按间隔接管
		takeover := time.Since(lastTakeover) >= c.sweepEvery
		c.sweepPending(ctx, takeover)
		if takeover {
			lastTakeover = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    10,
			Block:    c.blockTimeout,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			log.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// sweepPending 对 pending 表做一轮处置：
// 超过重试上限的消息移入死信流；自己名下退避到期的消息重新处理；
// takeover 为真时接管其他实例空闲超过阈值的消息。
func (c *Consumer) sweepPending(ctx context.Context, takeover bool) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  "-",
		End:    "+",
		Count:  20,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return
		}
		logger.FromContext(ctx).Error("failed to query pending messages", "error", err)
		return
	}

	for i := range pending {
		p := pending[i]
		owned := p.Consumer == c.consumerName

		// 他人名下的消息只在其长期无人确认时才动，避免和存活实例抢消息
		if !owned && (!takeover || p.Idle < c.takeoverIdle) {
			continue
		}

		minIdle := c.takeoverIdle
		if owned {
			minIdle = c.backoff.CalculateBackoff(int(p.RetryCount))
			if p.Idle < minIdle {
				continue
			}
		}

		if int(p.RetryCount) >= c.retryLimit {
			c.deadLetter(ctx, p.ID, minIdle)
			continue
		}

		for _, xmsg := range c.claim(ctx, p.ID, minIdle) {
			c.processMessage(ctx, xmsg)
		}
	}
}

// claim 把消息认领到本实例名下。MinIdle 作为并发护栏：
// 若在此期间被别的实例处理过，认领落空，返回空集。
func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.consumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil && err != redis.Nil {
		logger.FromContext(ctx).Error("failed to claim pending message", "error", err, "message_id", id)
		return nil
	}
	return claimed
}

// decode 解析流条目。格式损坏的条目无法重试，直接确认丢弃。
func (c *Consumer) decode(ctx context.Context, xmsg redis.XMessage) (*Message, bool) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.FromContext(ctx).Error("invalid message format", "message_id", xmsg.ID)
		c.ack(ctx, xmsg.ID)
		return nil, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		logger.FromContext(ctx).Error("failed to unmarshal message", "error", err, "message_id", xmsg.ID)
		c.ack(ctx, xmsg.ID)
		return nil, false
	}
	return &msg, true
}

// processMessage 处理单条消息
func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := msgTracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, ok := c.decode(ctx, xmsg)
	if !ok {
		return
	}

	if msg.TenantID != "" {
		ctx = logger.WithContext(ctx, logger.TenantIDKey, msg.TenantID)
	}
	if reqID := msg.GetMetadata(MetaRequestID); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata(MetaTraceID); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}

	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("tenant_id", msg.TenantID),
	)

	if err := c.handler(ctx, msg); err != nil {
		span.RecordError(err)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "error").Inc()
		logger.FromContext(ctx).Error("handler failed", "error", err, "message_id", msg.ID)
		c.handleFailure(ctx, xmsg, msg, err)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "success").Inc()
	c.ack(ctx, xmsg.ID)
}

// handleFailure 失败处置：未超限时不确认，留在 pending 等退避重投
func (c *Consumer) handleFailure(ctx context.Context, xmsg redis.XMessage, msg *Message, cause error) {
	log := logger.FromContext(ctx)

	retryCount := c.retryCount(ctx, xmsg.ID)
	if retryCount >= c.retryLimit {
		log.Warn("message moved to DLQ after max retries",
			"message_id", msg.ID,
			"retry_count", retryCount,
		)
		c.moveToDLQ(ctx, msg, cause.Error())
		c.ack(ctx, xmsg.ID)
		return
	}

	log.Info("message left pending for retry",
		"message_id", msg.ID,
		"retry_count", retryCount,
	)
}

// deadLetter 认领一条重试耗尽的 pending 消息并移入死信流
func (c *Consumer) deadLetter(ctx context.Context, id string, minIdle time.Duration) {
	for _, xmsg := range c.claim(ctx, id, minIdle) {
		msg, ok := c.decode(ctx, xmsg)
		if !ok {
			continue
		}
		c.moveToDLQ(ctx, msg, "message exceeded max retries")
		c.ack(ctx, xmsg.ID)
	}
}

// retryCount 通过 XPENDING 获取消息的投递次数
func (c *Consumer) retryCount(ctx context.Context, messageID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// moveToDLQ 移入死信流，保留原始载荷供人工排查或回放
func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, reason string) {
	dlqMsg := map[string]interface{}{
		"original_stream": string(c.stream),
		"data":            msg,
		"error":           reason,
		"failed_at":       time.Now().Unix(),
	}

	data, _ := json.Marshal(dlqMsg)
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream.DLQStream(),
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		logger.FromContext(ctx).Error("failed to write dead letter", "error", err, "message_id", msg.ID)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "dlq").Inc()
}

// ack 确认消息
func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack message", "error", err, "message_id", id)
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// MonitorDLQ 周期性上报死信流长度并在超阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlqStream := c.stream.DLQStream()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			info, err := c.client.XInfoStream(ctx, dlqStream).Result()
			if err != nil {
				continue
			}

			metrics.RedisStreamDLQDepth.WithLabelValues(string(c.stream)).Set(float64(info.Length))
			if info.Length > alertThreshold {
				log.Warn("DLQ has pending messages",
					"stream", dlqStream,
					"count", info.Length,
				)
			}
		}
	}
}
