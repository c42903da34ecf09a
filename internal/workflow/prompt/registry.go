// Package prompt 管理管线各阶段的提示词模板。
// 模板随二进制打包发布，ID 带版本号，改提示词必须换新 ID。
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptFactExtractV1      PromptID = "fact_extract_v1"
	PromptAnswerComposeV1    PromptID = "answer_compose_v1"
	PromptComplianceVerifyV1 PromptID = "compliance_verify_v1"
)

var knownPrompts = map[PromptID]bool{
	PromptFactExtractV1:      true,
	PromptAnswerComposeV1:    true,
	PromptComplianceVerifyV1: true,
}

// Registry 按需加载并缓存模板，加载后不再变化
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// ChatTemplate 返回指定 ID 的模板，缓存未命中时从内嵌文件构建
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	tpl, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	tpl, err := buildTemplate(id)
	if err != nil {
		return nil, err
	}
	r.cache[id] = tpl
	return tpl, nil
}

// buildTemplate 每个模板由 system 和 user 两个文件组成，
// 文件名从 ID 推导
func buildTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if !knownPrompts[id] {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}

	system, err := readEmbeddedText(fmt.Sprintf("templates/%s.system.txt", id))
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(fmt.Sprintf("templates/%s.user.txt", id))
	if err != nil {
		return nil, err
	}

	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	), nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
