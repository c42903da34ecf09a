package rag

import (
	"context"
	"strings"

	"sop-rag-api/internal/workflow/node"
	"sop-rag-api/internal/workflow/port"
	wfprompt "sop-rag-api/internal/workflow/prompt"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/metrics"
)

// ComplianceVerifier 独立合规校验阶段
//
// 校验器对任何歧义一律收紧：模型调用失败、输出无法解析、判定无法改写，
// 都回退到固定拒答文案，绝不把未经校验的原答案放行。
type ComplianceVerifier struct {
	stage *generationStage
}

// NewComplianceVerifier 创建校验器
func NewComplianceVerifier(factory port.ChatModelFactory, registry *wfprompt.Registry, provider string) *ComplianceVerifier {
	return &ComplianceVerifier{
		stage: newGenerationStage("verify", factory, registry, wfprompt.PromptComplianceVerifyV1, provider),
	}
}

// verifyPayload 模型输出的 JSON 结构
type verifyPayload struct {
	Verdict string `json:"verdict"` // compliant / rewrite / reject
	Issues  []struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
		Excerpt     string `json:"excerpt"`
	} `json:"issues"`
	RewrittenAnswer string `json:"rewritten_answer"`
}

// Verify 逐条核对答案声明与事实的对应关系
func (v *ComplianceVerifier) Verify(ctx context.Context, answer string, facts []Fact, provider string) *VerifyResult {
	ctx, span := tracer.Start(ctx, "rag.verify")
	defer span.End()

	// 拒答文案无需校验
	if answer == RefusalText {
		metrics.ComplianceVerdictTotal.WithLabelValues("passed").Inc()
		return &VerifyResult{Passed: true, FinalAnswer: RefusalText}
	}

	raw, err := v.stage.generate(ctx, provider, map[string]any{
		"answer": answer,
		"facts":  renderFacts(facts),
	})
	if err != nil {
		span.RecordError(err)
		logger.Warn(ctx, "compliance verification call failed, refusing", "error", err.Error())
		metrics.ComplianceVerdictTotal.WithLabelValues("refused").Inc()
		return &VerifyResult{Passed: false, FinalAnswer: RefusalText}
	}

	var payload verifyPayload
	if err := node.DecodeStrict(raw, &payload); err != nil {
		logger.Warn(ctx, "compliance verification output unparsable, refusing", "error", err.Error())
		metrics.ComplianceVerdictTotal.WithLabelValues("refused").Inc()
		return &VerifyResult{Passed: false, FinalAnswer: RefusalText}
	}

	issues := make([]ComplianceIssue, 0, len(payload.Issues))
	for _, is := range payload.Issues {
		issues = append(issues, ComplianceIssue{
			Kind:        IssueKind(strings.TrimSpace(is.Kind)),
			Description: strings.TrimSpace(is.Description),
			Excerpt:     is.Excerpt,
		})
	}

	switch strings.ToLower(strings.TrimSpace(payload.Verdict)) {
	case "compliant":
		metrics.ComplianceVerdictTotal.WithLabelValues("passed").Inc()
		return &VerifyResult{Passed: true, FinalAnswer: answer, Issues: issues}
	case "rewrite":
		rewritten := strings.TrimSpace(payload.RewrittenAnswer)
		if rewritten == "" {
			// 判定可改写却没给出改写文本，按无法改写收紧
			metrics.ComplianceVerdictTotal.WithLabelValues("refused").Inc()
			return &VerifyResult{Passed: false, FinalAnswer: RefusalText, Issues: issues}
		}
		metrics.ComplianceVerdictTotal.WithLabelValues("rewritten").Inc()
		return &VerifyResult{Passed: false, FinalAnswer: rewritten, Issues: issues, WasRewritten: true}
	default:
		// reject 或未知判定
		metrics.ComplianceVerdictTotal.WithLabelValues("refused").Inc()
		return &VerifyResult{Passed: false, FinalAnswer: RefusalText, Issues: issues}
	}
}
