// Package llm 提供 LLM 客户端工厂
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"sop-rag-api/internal/config"
)

// EinoFactory 按名字缓存 Eino ChatModel 实例。
// 抽取、生成、校验三个阶段可以指向不同的 provider，
// 同名模型全进程共享一个客户端。
type EinoFactory struct {
	config *config.LLMConfig

	mu     sync.RWMutex
	models map[string]model.BaseChatModel
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，name 为空时用默认 provider。
// 客户端惰性构建，首个调用方付出建连成本。
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	m, err := f.build(ctx, name)
	if err != nil {
		return nil, err
	}
	f.models[name] = m
	return m, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func (f *EinoFactory) build(ctx context.Context, name string) (model.BaseChatModel, error) {
	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	temperature := float32(providerCfg.Temperature)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: &temperature,
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return chatModel, nil
}
