package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/metrics"
)

// AnswerQueryStream 流式问答
//
// 检索、抽取和拒答决策在返回前同步完成，授权与事实落定之前不产出
// 任何 token。返回的通道先产出合成阶段的 token 事件，最后产出一个
// final 信封；final 中的答案经过合规校验，是唯一权威文本，可能与
// token 拼接结果不同（改写或拒答时以 final 为准）。
// 调用方取消 ctx 时放弃在途的模型调用，通道会被关闭。
func (o *Orchestrator) AnswerQueryStream(ctx context.Context, in QueryInput) <-chan StreamEvent {
	start := time.Now()
	metrics.ActiveQueries.Inc()

	ctx, span := tracer.Start(ctx, "rag.answer_query_stream")

	events := make(chan StreamEvent, 16)

	finish := func(result *PipelineResult) {
		result.Metadata.Timings.TotalMs = time.Since(start).Milliseconds()
		metrics.PipelineTotal.WithLabelValues(in.TenantID, outcomeLabel(result)).Inc()
		metrics.PipelineDuration.WithLabelValues(in.TenantID).Observe(time.Since(start).Seconds())
		select {
		case events <- StreamEvent{Type: StreamEventFinal, Result: result}:
		case <-ctx.Done():
		}
		close(events)
		span.End()
		metrics.ActiveQueries.Dec()
	}

	prep := o.prepare(ctx, in)
	if prep.early != nil {
		go finish(prep.early)
		return events
	}

	query := strings.TrimSpace(in.Query)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "streaming pipeline panic", fmt.Errorf("%v", r))
				finish(o.failed(prep.models, ErrTagInternal, "internal error"))
			}
		}()

		compositionStart := time.Now()
		answer := o.streamCompose(ctx, prep, query, events)
		prep.timings.CompositionMs = time.Since(compositionStart).Milliseconds()
		metrics.PipelineStageDuration.WithLabelValues("composition").Observe(time.Since(compositionStart).Seconds())

		if ctx.Err() != nil {
			// 调用方断开：放弃本轮，不再校验也不产出 final
			close(events)
			span.End()
			metrics.ActiveQueries.Dec()
			return
		}

		verificationStart := time.Now()
		verdict := o.verifyStage(ctx, answer, prep.facts, prep.models.Verification)
		prep.timings.VerificationMs = time.Since(verificationStart).Milliseconds()
		metrics.PipelineStageDuration.WithLabelValues("verification").Observe(time.Since(verificationStart).Seconds())

		finish(o.finalize(prep, verdict))
	}()
	return events
}

// streamCompose 流式合成：逐 token 转发并累积完整文本
// 流故障回退到拒答文案，与非流式合成的兜底语义一致
func (o *Orchestrator) streamCompose(ctx context.Context, prep *preparedQuery, query string, events chan<- StreamEvent) string {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	reader, err := o.composer.ComposeStream(ctx, prep.facts, query, prep.models.Generation)
	if err != nil || reader == nil {
		if err != nil {
			logger.Warn(ctx, "streaming composition failed, falling back to refusal", "error", err.Error())
		}
		return RefusalText
	}
	defer reader.Close()

	var sb strings.Builder
	for {
		msg, err := reader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logger.Warn(ctx, "composition stream interrupted, falling back to refusal", "error", err.Error())
			return RefusalText
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		sb.WriteString(msg.Content)
		select {
		case events <- StreamEvent{Type: StreamEventToken, Token: msg.Content}:
		case <-ctx.Done():
			return RefusalText
		}
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return RefusalText
	}
	return answer
}
