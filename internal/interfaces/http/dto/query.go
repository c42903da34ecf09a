// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/domain/entity"
)

// QueryRequest 问答请求
// 各阶段的 provider 可单独覆盖，留空使用配置默认值
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id,omitempty"`

	ExtractionProvider   string `json:"extraction_provider,omitempty"`
	GenerationProvider   string `json:"generation_provider,omitempty"`
	VerificationProvider string `json:"verification_provider,omitempty"`
}

// ToQueryInput 组装管线输入；角色和租户来自认证上下文而非请求体
func (r *QueryRequest) ToQueryInput(role entity.Role, tenantID, userID string) rag.QueryInput {
	return rag.QueryInput{
		Query:    r.Query,
		Role:     role,
		TenantID: tenantID,
		UserID:   userID,
		Models: rag.ModelConfig{
			Extraction:   r.ExtractionProvider,
			Generation:   r.GenerationProvider,
			Verification: r.VerificationProvider,
		},
	}
}

// QueryResponse 问答响应，镜像管线结果
type QueryResponse struct {
	Success  bool               `json:"success"`
	Answer   string             `json:"answer"`
	Sources  []rag.Source       `json:"sources"`
	Metadata rag.ResultMetadata `json:"metadata"`
}

// NewQueryResponse 从管线结果构造响应
func NewQueryResponse(result *rag.PipelineResult) *QueryResponse {
	if result == nil {
		return nil
	}
	return &QueryResponse{
		Success:  result.Success,
		Answer:   result.Answer,
		Sources:  result.Sources,
		Metadata: result.Metadata,
	}
}

// StreamTokenEvent SSE token 事件负载
type StreamTokenEvent struct {
	Token string `json:"token"`
}

// StreamFinalEvent SSE final 事件负载
// 其中的答案是经过合规校验的权威版本，客户端必须用它替换已渲染的 token 流
type StreamFinalEvent struct {
	Result *QueryResponse `json:"result"`
}
