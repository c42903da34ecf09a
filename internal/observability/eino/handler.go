package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sop-rag-api/internal/domain/service"
	"sop-rag-api/pkg/metrics"
)

// llmStartKey 在 Context 中携带调用开始时间，OnEnd/OnError 用它算耗时
type llmStartKey struct{}

// newChatModelCallbackHandler 创建模型调用回调。
// 每次抽取、合成、校验阶段调用 LLM 时记录计数、耗时、
// token 消耗和 trace span，阶段名从请求上下文读取。
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, llmStartKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("pipeline.stage", service.StageFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			modelName := modelNameFromOutput(output)
			recordCall(ctx, modelName, "success")

			span := trace.SpanFromContext(ctx)
			if output != nil && output.TokenUsage != nil {
				provider := service.ProviderFromContext(ctx)
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(output.TokenUsage.PromptTokens))
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(output.TokenUsage.CompletionTokens))

				if span != nil {
					span.SetAttributes(
						attribute.Int("llm.prompt_tokens", output.TokenUsage.PromptTokens),
						attribute.Int("llm.completion_tokens", output.TokenUsage.CompletionTokens),
					)
				}
			}
			if span != nil {
				span.End()
			}
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			modelName := ""
			if info != nil {
				modelName = info.Type
			}
			recordCall(ctx, modelName, "error")

			if span := trace.SpanFromContext(ctx); span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
			}
			return ctx
		},
	}
}

// recordCall 记录调用计数与耗时，成功和失败共用
func recordCall(ctx context.Context, modelName, status string) {
	provider := service.ProviderFromContext(ctx)
	metrics.LLMCallTotal.WithLabelValues(provider, modelName, status).Inc()

	if start, ok := ctx.Value(llmStartKey{}).(time.Time); ok && !start.IsZero() {
		metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(time.Since(start).Seconds())
	}
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
