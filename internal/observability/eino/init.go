// Package eino 为管线的 LLM 调用注册 Eino 全局观测回调
package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var initOnce sync.Once

// Init 注册全局 callbacks。进程级一次，重复调用无效果。
func Init() {
	initOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}
