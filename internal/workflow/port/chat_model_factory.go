package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 是管线各生成阶段对 LLM 的最小依赖。
// name 为配置中的 provider 名，抽取、合成、校验阶段可各自绑定不同实例。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
