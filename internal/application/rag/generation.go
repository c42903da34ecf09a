package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"sop-rag-api/internal/domain/service"
	"sop-rag-api/internal/workflow/port"
	wfprompt "sop-rag-api/internal/workflow/prompt"
)

// generationStage 单个生成阶段：固定的提示词模板 + 可按调用覆盖的 provider。
// 抽取、合成、校验三个阶段共用同一调用形态，只在模板和 provider 上参数化。
type generationStage struct {
	name     string
	factory  port.ChatModelFactory
	registry *wfprompt.Registry
	promptID wfprompt.PromptID
	provider string
}

func newGenerationStage(name string, factory port.ChatModelFactory, registry *wfprompt.Registry, promptID wfprompt.PromptID, provider string) *generationStage {
	return &generationStage{
		name:     name,
		factory:  factory,
		registry: registry,
		promptID: promptID,
		provider: provider,
	}
}

// resolveProvider 调用级 provider 覆盖阶段默认值
func (s *generationStage) resolveProvider(override string) string {
	if p := strings.TrimSpace(override); p != "" {
		return p
	}
	return s.provider
}

func (s *generationStage) formatMessages(ctx context.Context, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := s.registry.ChatTemplate(s.promptID)
	if err != nil {
		return nil, fmt.Errorf("stage %s: resolve prompt: %w", s.name, err)
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("stage %s: format prompt: %w", s.name, err)
	}
	return msgs, nil
}

// generate 执行一次生成调用，返回模型输出文本
func (s *generationStage) generate(ctx context.Context, providerOverride string, vars map[string]any) (string, error) {
	if s == nil || s.factory == nil {
		return "", fmt.Errorf("stage %s: llm factory not configured", s.name)
	}
	provider := s.resolveProvider(providerOverride)
	ctx = service.WithStageProvider(ctx, s.name, provider)
	chatModel, err := s.factory.Get(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", s.name, err)
	}
	msgs, err := s.formatMessages(ctx, vars)
	if err != nil {
		return "", err
	}
	out, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", s.name, err)
	}
	if out == nil {
		return "", fmt.Errorf("stage %s: empty model response", s.name)
	}
	return out.Content, nil
}

// stream 执行一次流式生成调用；调用方负责 Close()。
// 约定：流可能在最后返回一个 Content 为空但包含 Usage 的消息，用于 Token 统计。
func (s *generationStage) stream(ctx context.Context, providerOverride string, vars map[string]any) (*schema.StreamReader[*schema.Message], error) {
	if s == nil || s.factory == nil {
		return nil, fmt.Errorf("stage %s: llm factory not configured", s.name)
	}
	provider := s.resolveProvider(providerOverride)
	ctx = service.WithStageProvider(ctx, s.name, provider)
	chatModel, err := s.factory.Get(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", s.name, err)
	}
	msgs, err := s.formatMessages(ctx, vars)
	if err != nil {
		return nil, err
	}
	reader, err := chatModel.Stream(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", s.name, err)
	}
	return reader, nil
}
