// Package rag 实现角色门控的多阶段检索增强问答管线
//
// 管线：访问策略 -> 向量检索 -> 逐字事实抽取 -> 引用约束的答案合成 ->
// 独立合规校验。每个阶段严格依赖上一阶段的结构化输出，顺序执行。
package rag

import (
	"strings"

	"sop-rag-api/internal/domain/entity"
)

// RefusalText 固定拒答文案
// 下游合规校验和测试按字节精确比对该字符串，任何改动都是破坏性变更
const RefusalText = "I cannot answer this question based on the documents you are authorized to access."

// 管线错误标签，写入结果元数据，区分调用方可修复的输入错误与基础设施故障
const (
	ErrTagInvalidQuery     = "INVALID_QUERY"
	ErrTagInvalidRole      = "INVALID_ROLE"
	ErrTagEmbeddingFailed  = "EMBEDDING_FAILED"
	ErrTagGenerationFailed = "GENERATION_FAILED"
	ErrTagInternal         = "INTERNAL_ERROR"
)

// RetrievedChunk 单次检索返回的切片及其相似度得分
// 只在一次管线调用内存活
type RetrievedChunk struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	Page        int                `json:"page"`
	Section     string             `json:"section"`
	AccessLevel entity.AccessLevel `json:"access_level,omitempty"`
	Text        string             `json:"text"`
	Score       float64            `json:"score"`
}

// Relevance 事实与问题的相关度档位
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Fact 从切片中逐字摘出的事实单元
// Text 必须是某个输入切片文本的逐字摘录，抽取器不能合成上下文之外的文字
type Fact struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Section   string    `json:"section"`
	Relevance Relevance `json:"relevance"`
}

// IssueKind 合规问题类别
type IssueKind string

const (
	IssueUnsupportedClaim     IssueKind = "unsupported-claim"
	IssueMissingCitation      IssueKind = "missing-citation"
	IssueUnjustifiedInference IssueKind = "unjustified-inference"
	IssueRestrictedInfoLeak   IssueKind = "restricted-info-leak"
)

// ComplianceIssue 校验器发现的单个合规问题
type ComplianceIssue struct {
	Kind        IssueKind `json:"kind"`
	Description string    `json:"description"`
	Excerpt     string    `json:"excerpt,omitempty"`
}

// VerifyResult 合规校验结论
type VerifyResult struct {
	Passed       bool              `json:"passed"`
	FinalAnswer  string            `json:"final_answer"`
	Issues       []ComplianceIssue `json:"issues,omitempty"`
	WasRewritten bool              `json:"was_rewritten"`
}

// Source 答案引用的来源锚点，(文档, 页码, 章节) 三元组
type Source struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Section  string `json:"section,omitempty"`
}

// StageTimings 各阶段耗时（毫秒）
type StageTimings struct {
	RetrievalMs    int64 `json:"retrieval_ms"`
	ExtractionMs   int64 `json:"extraction_ms"`
	CompositionMs  int64 `json:"composition_ms"`
	VerificationMs int64 `json:"verification_ms"`
	TotalMs        int64 `json:"total_ms"`
}

// ResultMetadata 管线结果元数据
type ResultMetadata struct {
	AccessibleLevels []entity.AccessLevel `json:"accessible_levels"`
	ChunkCount       int                  `json:"chunk_count"`
	FactCount        int                  `json:"fact_count"`
	Verification     string               `json:"verification,omitempty"` // passed / rewritten / refused / skipped
	Timings          StageTimings         `json:"timings"`
	Models           ModelConfig          `json:"models"`
	ErrorTag         string               `json:"error_tag,omitempty"`
	ErrorDetail      string               `json:"error_detail,omitempty"`
}

// ModelConfig 各阶段使用的模型/provider 标识
type ModelConfig struct {
	Extraction   string `json:"extraction,omitempty"`
	Generation   string `json:"generation,omitempty"`
	Verification string `json:"verification,omitempty"`
}

// PipelineResult 一次问答的最终结构化结果
// Success 为 false 仅表示输入错误或基础设施故障；授权范围内检索不到内容
// 属于正常拒答，Success 仍为 true
type PipelineResult struct {
	Success  bool           `json:"success"`
	Answer   string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata ResultMetadata `json:"metadata"`
}

// QueryInput 一次问答的输入
type QueryInput struct {
	Query    string
	Role     entity.Role
	TenantID string
	UserID   string
	Models   ModelConfig
}

// StreamEventType 流式问答事件类型
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
	StreamEventFinal StreamEventType = "final"
)

func accessLevelFromString(s string) entity.AccessLevel {
	return entity.AccessLevel(strings.TrimSpace(s))
}

// StreamEvent 流式问答事件：若干 token 事件后跟一个 final 信封
// final 信封中的 Result.Answer 是经过合规校验的权威答案，
// 调用方必须以它为准，而不是拼接的 token 序列
type StreamEvent struct {
	Type   StreamEventType `json:"type"`
	Token  string          `json:"token,omitempty"`
	Result *PipelineResult `json:"result,omitempty"`
}
