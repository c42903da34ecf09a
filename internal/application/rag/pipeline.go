package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/metrics"
)

// Orchestrator 问答管线编排器
//
// 状态流转：Received -> Filtered -> Retrieved -> Extracted -> Composed ->
// Verified -> Done；检索为空或无事实时提前进入拒答（仍是成功结果）；
// 输入错误和基础设施故障进入 Failed，答案统一落到拒答文案。
// 每次调用无共享可变状态，可任意并发。
type Orchestrator struct {
	policy    *policy.AccessPolicy
	retriever *Retriever
	extractor *FactExtractor
	composer  *AnswerComposer
	verifier  *ComplianceVerifier

	stageTimeout time.Duration
	defaults     ModelConfig
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	p *policy.AccessPolicy,
	retriever *Retriever,
	extractor *FactExtractor,
	composer *AnswerComposer,
	verifier *ComplianceVerifier,
	stageTimeout time.Duration,
	defaults ModelConfig,
) *Orchestrator {
	if stageTimeout <= 0 {
		stageTimeout = 60 * time.Second
	}
	return &Orchestrator{
		policy:       p,
		retriever:    retriever,
		extractor:    extractor,
		composer:     composer,
		verifier:     verifier,
		stageTimeout: stageTimeout,
		defaults:     defaults,
	}
}

func (o *Orchestrator) resolveModels(in QueryInput) ModelConfig {
	m := in.Models
	if m.Extraction == "" {
		m.Extraction = o.defaults.Extraction
	}
	if m.Generation == "" {
		m.Generation = o.defaults.Generation
	}
	if m.Verification == "" {
		m.Verification = o.defaults.Verification
	}
	return m
}

// preparedQuery 合成阶段之前的管线状态
// early 非 nil 表示管线在合成前已经终结（失败或拒答）
type preparedQuery struct {
	models  ModelConfig
	levels  []entity.AccessLevel
	chunks  []RetrievedChunk
	facts   []Fact
	timings StageTimings
	early   *PipelineResult
}

// prepare 执行合成之前的所有阶段：输入校验、过滤、检索、抽取。
// 流式与非流式共用；拒答决策在这里完成，之后才允许产出任何 token。
func (o *Orchestrator) prepare(ctx context.Context, in QueryInput) *preparedQuery {
	models := o.resolveModels(in)
	prep := &preparedQuery{models: models}

	// Received -> Filtered：输入校验，失败属于调用方可修复的错误
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		prep.early = o.failed(models, ErrTagInvalidQuery, "query is empty")
		return prep
	}
	if !in.Role.IsValid() {
		prep.early = o.failed(models, ErrTagInvalidRole, "role not recognized: "+string(in.Role))
		return prep
	}

	prep.levels = o.policy.AccessibleLevels(in.Role)
	filter := o.policy.BuildFilter(in.Role, in.TenantID)

	// Filtered -> Retrieved
	retrievalStart := time.Now()
	chunks, err := o.retrieveStage(ctx, in.Query, filter)
	prep.timings.RetrievalMs = time.Since(retrievalStart).Milliseconds()
	metrics.PipelineStageDuration.WithLabelValues("retrieval").Observe(time.Since(retrievalStart).Seconds())
	if err != nil {
		// embedding 与索引故障同属检索阶段故障，共用同一错误标签
		logger.Error(ctx, "retrieval stage failed", err)
		res := o.failed(models, ErrTagEmbeddingFailed, err.Error())
		res.Metadata.AccessibleLevels = prep.levels
		res.Metadata.Timings = prep.timings
		prep.early = res
		return prep
	}
	prep.chunks = chunks

	// Retrieved -> Refused(no-chunks)：授权范围内没有内容不是系统错误
	if len(chunks) == 0 {
		prep.early = o.refusal(prep.levels, 0, 0, models, prep.timings)
		return prep
	}

	// Retrieved -> Extracted
	extractionStart := time.Now()
	extracted, err := o.extractStage(ctx, chunks, in.Query, models.Extraction)
	prep.timings.ExtractionMs = time.Since(extractionStart).Milliseconds()
	metrics.PipelineStageDuration.WithLabelValues("extraction").Observe(time.Since(extractionStart).Seconds())
	if err != nil {
		logger.Error(ctx, "extraction stage failed", err)
		res := o.failed(models, ErrTagGenerationFailed, err.Error())
		res.Metadata.AccessibleLevels = prep.levels
		res.Metadata.ChunkCount = len(chunks)
		res.Metadata.Timings = prep.timings
		prep.early = res
		return prep
	}

	// Extracted -> Refused(no-facts)
	if !extracted.HasContent {
		prep.early = o.refusal(prep.levels, len(chunks), 0, models, prep.timings)
		return prep
	}
	prep.facts = extracted.Facts
	return prep
}

// finalize 把校验结论装配成最终结果
func (o *Orchestrator) finalize(prep *preparedQuery, verdict *VerifyResult) *PipelineResult {
	finalAnswer := verdict.FinalAnswer
	var sources []Source
	if finalAnswer != RefusalText {
		sources = dedupSources(prep.facts)
	}
	return &PipelineResult{
		Success: true,
		Answer:  finalAnswer,
		Sources: sources,
		Metadata: ResultMetadata{
			AccessibleLevels: prep.levels,
			ChunkCount:       len(prep.chunks),
			FactCount:        len(prep.facts),
			Verification:     verificationOutcome(verdict),
			Timings:          prep.timings,
			Models:           prep.models,
		},
	}
}

// AnswerQuery 执行一次完整的问答管线
func (o *Orchestrator) AnswerQuery(ctx context.Context, in QueryInput) (result *PipelineResult) {
	start := time.Now()
	metrics.ActiveQueries.Inc()
	defer metrics.ActiveQueries.Dec()

	ctx, span := tracer.Start(ctx, "rag.answer_query")
	defer span.End()

	// 任何阶段的 panic 都收敛到 Failed，错误细节只进元数据
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "answer pipeline panic", fmt.Errorf("%v", r))
			result = o.failed(o.resolveModels(in), ErrTagInternal, "internal error")
		}
		if result != nil {
			result.Metadata.Timings.TotalMs = time.Since(start).Milliseconds()
			metrics.PipelineTotal.WithLabelValues(in.TenantID, outcomeLabel(result)).Inc()
			metrics.PipelineDuration.WithLabelValues(in.TenantID).Observe(time.Since(start).Seconds())
		}
	}()

	prep := o.prepare(ctx, in)
	if prep.early != nil {
		return prep.early
	}

	// Extracted -> Composed，合成阶段自带拒答兜底，不会返回错误
	compositionStart := time.Now()
	answer := o.composeStage(ctx, prep.facts, strings.TrimSpace(in.Query), prep.models.Generation)
	prep.timings.CompositionMs = time.Since(compositionStart).Milliseconds()
	metrics.PipelineStageDuration.WithLabelValues("composition").Observe(time.Since(compositionStart).Seconds())

	// Composed -> Verified
	verificationStart := time.Now()
	verdict := o.verifyStage(ctx, answer, prep.facts, prep.models.Verification)
	prep.timings.VerificationMs = time.Since(verificationStart).Milliseconds()
	metrics.PipelineStageDuration.WithLabelValues("verification").Observe(time.Since(verificationStart).Seconds())

	return o.finalize(prep, verdict)
}

// retrieveStage 带超时的检索阶段
func (o *Orchestrator) retrieveStage(ctx context.Context, query string, filter policy.Filter) ([]RetrievedChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.retriever.Retrieve(ctx, query, filter)
}

// extractStage 带超时的抽取阶段
func (o *Orchestrator) extractStage(ctx context.Context, chunks []RetrievedChunk, query, provider string) (*ExtractResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.extractor.Extract(ctx, chunks, query, provider)
}

// composeStage 带超时的合成阶段
func (o *Orchestrator) composeStage(ctx context.Context, facts []Fact, query, provider string) string {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.composer.Compose(ctx, facts, query, provider)
}

// verifyStage 带超时的校验阶段
func (o *Orchestrator) verifyStage(ctx context.Context, answer string, facts []Fact, provider string) *VerifyResult {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.verifier.Verify(ctx, answer, facts, provider)
}

// refusal 正常拒答：授权范围内找不到可用内容
func (o *Orchestrator) refusal(levels []entity.AccessLevel, chunkCount, factCount int, models ModelConfig, timings StageTimings) *PipelineResult {
	return &PipelineResult{
		Success: true,
		Answer:  RefusalText,
		Sources: nil,
		Metadata: ResultMetadata{
			AccessibleLevels: levels,
			ChunkCount:       chunkCount,
			FactCount:        factCount,
			Verification:     "skipped",
			Timings:          timings,
			Models:           models,
		},
	}
}

// failed 终态失败：输入错误或基础设施故障
// 答案统一为拒答文案，错误细节只出现在元数据里
func (o *Orchestrator) failed(models ModelConfig, tag, detail string) *PipelineResult {
	return &PipelineResult{
		Success: false,
		Answer:  RefusalText,
		Sources: nil,
		Metadata: ResultMetadata{
			Models:      models,
			ErrorTag:    tag,
			ErrorDetail: detail,
		},
	}
}

// dedupSources 去重并保序地收集事实的 (文档, 页码, 章节) 三元组
func dedupSources(facts []Fact) []Source {
	seen := make(map[Source]bool, len(facts))
	out := make([]Source, 0, len(facts))
	for _, f := range facts {
		s := Source{Document: f.Source, Page: f.Page, Section: f.Section}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func verificationOutcome(v *VerifyResult) string {
	switch {
	case v.Passed:
		return "passed"
	case v.WasRewritten:
		return "rewritten"
	default:
		return "refused"
	}
}

func outcomeLabel(r *PipelineResult) string {
	switch {
	case !r.Success:
		return "failed"
	case r.Answer == RefusalText:
		return "refused"
	case r.Metadata.Verification == "rewritten":
		return "rewritten"
	default:
		return "answered"
	}
}
