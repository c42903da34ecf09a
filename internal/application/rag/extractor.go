package rag

import (
	"context"
	"fmt"
	"strings"

	"sop-rag-api/internal/workflow/node"
	"sop-rag-api/internal/workflow/port"
	wfprompt "sop-rag-api/internal/workflow/prompt"
	"sop-rag-api/pkg/logger"
)

// ExtractResult 事实抽取结论
type ExtractResult struct {
	Facts      []Fact
	HasContent bool
}

// FactExtractor 逐字事实抽取阶段
type FactExtractor struct {
	stage *generationStage
}

// NewFactExtractor 创建抽取器
func NewFactExtractor(factory port.ChatModelFactory, registry *wfprompt.Registry, provider string) *FactExtractor {
	return &FactExtractor{
		stage: newGenerationStage("extract", factory, registry, wfprompt.PromptFactExtractV1, provider),
	}
}

// extractPayload 模型输出的 JSON 结构
type extractPayload struct {
	HasContent bool `json:"has_content"`
	Facts      []struct {
		Text      string `json:"text"`
		Source    string `json:"source"`
		Page      int    `json:"page"`
		Section   string `json:"section"`
		Relevance string `json:"relevance"`
	} `json:"facts"`
}

// Extract 从检索切片中摘出逐字事实
//
// 模型输出解析失败或模型判定无相关内容时返回 HasContent=false，
// 这是拒答路径而不是错误，管线不会因此中断。
// 来源不在输入切片内的候选事实一律丢弃，防止模型编造引用。
func (e *FactExtractor) Extract(ctx context.Context, chunks []RetrievedChunk, query, provider string) (*ExtractResult, error) {
	ctx, span := tracer.Start(ctx, "rag.extract")
	defer span.End()

	if len(chunks) == 0 {
		return &ExtractResult{HasContent: false}, nil
	}

	raw, err := e.stage.generate(ctx, provider, map[string]any{
		"query":  query,
		"chunks": renderChunks(chunks),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var payload extractPayload
	if err := node.DecodeStrict(raw, &payload); err != nil {
		// 解析失败按“无相关内容”处理
		logger.Warn(ctx, "fact extraction output unparsable, treating as no content", "error", err.Error())
		return &ExtractResult{HasContent: false}, nil
	}
	if !payload.HasContent || len(payload.Facts) == 0 {
		return &ExtractResult{HasContent: false}, nil
	}

	allowed := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		allowed[c.Source] = true
	}

	facts := make([]Fact, 0, len(payload.Facts))
	for _, f := range payload.Facts {
		source := strings.TrimSpace(f.Source)
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		if !allowed[source] {
			logger.Warn(ctx, "discarding fact with fabricated source", "source", source)
			continue
		}
		facts = append(facts, Fact{
			Text:      text,
			Source:    source,
			Page:      f.Page,
			Section:   strings.TrimSpace(f.Section),
			Relevance: normalizeRelevance(f.Relevance),
		})
	}
	if len(facts) == 0 {
		return &ExtractResult{HasContent: false}, nil
	}
	return &ExtractResult{Facts: facts, HasContent: true}, nil
}

func normalizeRelevance(s string) Relevance {
	switch Relevance(strings.ToLower(strings.TrimSpace(s))) {
	case RelevanceHigh:
		return RelevanceHigh
	case RelevanceLow:
		return RelevanceLow
	default:
		return RelevanceMedium
	}
}

// renderChunks 把切片渲染为带来源标注的提示词片段
func renderChunks(chunks []RetrievedChunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		level := string(c.AccessLevel)
		if level == "" {
			level = "unclassified"
		}
		fmt.Fprintf(&sb, "[%d] source=%q page=%d section=%q level=%s\n%s\n\n",
			i+1, c.Source, c.Page, c.Section, level, strings.TrimSpace(c.Text))
	}
	return strings.TrimSpace(sb.String())
}
