// Package service 提供领域层的上下文辅助
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyStage    llmCtxKey = "llm_stage"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

// WithStageProvider 标注当前 LLM 调用所属的管线阶段
// (extract/compose/verify) 与 provider 名称，供观测回调读取
func WithStageProvider(ctx context.Context, stage, provider string) context.Context {
	if s := strings.TrimSpace(stage); s != "" {
		ctx = context.WithValue(ctx, llmCtxKeyStage, s)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, llmCtxKeyProvider, p)
	}
	return ctx
}

// StageFromContext 读取管线阶段，未标注时返回 unknown
func StageFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyStage)
}

// ProviderFromContext 读取 provider 名称，未标注时返回 unknown
func ProviderFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyProvider)
}

func stringFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return "unknown"
	}
	return s
}
