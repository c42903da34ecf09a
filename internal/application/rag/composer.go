package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"sop-rag-api/internal/workflow/port"
	wfprompt "sop-rag-api/internal/workflow/prompt"
	"sop-rag-api/pkg/logger"
)

// AnswerComposer 引用约束的答案合成阶段
type AnswerComposer struct {
	stage *generationStage
}

// NewAnswerComposer 创建合成器
func NewAnswerComposer(factory port.ChatModelFactory, registry *wfprompt.Registry, provider string) *AnswerComposer {
	return &AnswerComposer{
		stage: newGenerationStage("compose", factory, registry, wfprompt.PromptAnswerComposeV1, provider),
	}
}

// Compose 基于事实合成带引用的答案
//
// 事实为空返回固定拒答文案（逐字节一致）；模型调用失败同样回退到
// 拒答文案而不是向上抛错（fail-safe）。
func (c *AnswerComposer) Compose(ctx context.Context, facts []Fact, query, provider string) string {
	ctx, span := tracer.Start(ctx, "rag.compose")
	defer span.End()

	if len(facts) == 0 {
		return RefusalText
	}

	answer, err := c.stage.generate(ctx, provider, map[string]any{
		"query": query,
		"facts": renderFacts(facts),
	})
	if err != nil {
		span.RecordError(err)
		logger.Warn(ctx, "answer composition failed, falling back to refusal", "error", err.Error())
		return RefusalText
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return RefusalText
	}
	return answer
}

// ComposeStream 流式合成；事实为空时返回 nil reader，调用方应直接使用拒答文案。
// 返回的 StreamReader 由调用方负责 Close()。
func (c *AnswerComposer) ComposeStream(ctx context.Context, facts []Fact, query, provider string) (*schema.StreamReader[*schema.Message], error) {
	ctx, span := tracer.Start(ctx, "rag.compose_stream")
	defer span.End()

	if len(facts) == 0 {
		return nil, nil
	}
	reader, err := c.stage.stream(ctx, provider, map[string]any{
		"query": query,
		"facts": renderFacts(facts),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return reader, nil
}

// renderFacts 把事实渲染为编号列表，供合成与校验两个阶段复用
func renderFacts(facts []Fact) string {
	var sb strings.Builder
	for i, f := range facts {
		fmt.Fprintf(&sb, "%d. %q (source=%s, page=%d, section=%q, relevance=%s)\n",
			i+1, f.Text, f.Source, f.Page, f.Section, f.Relevance)
	}
	return strings.TrimSpace(sb.String())
}
