package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfprompt "sop-rag-api/internal/workflow/prompt"
)

func newVerifier(m *fakeChatModel) *ComplianceVerifier {
	factory := &fakeFactory{models: map[string]*fakeChatModel{"ver": m}}
	return NewComplianceVerifier(factory, wfprompt.NewRegistry(), "ver")
}

func TestVerifyShortCircuitsOnRefusalText(t *testing.T) {
	m := &fakeChatModel{reply: "should never be used"}
	v := newVerifier(m)

	res := v.Verify(context.Background(), RefusalText, sampleFacts(), "")

	assert.True(t, res.Passed)
	assert.Equal(t, RefusalText, res.FinalAnswer)
	assert.Empty(t, res.Issues)
	assert.Zero(t, m.calls)
}

func TestVerifyCompliantKeepsAnswer(t *testing.T) {
	v := newVerifier(&fakeChatModel{reply: `{"verdict": "compliant", "issues": [], "rewritten_answer": ""}`})
	answer := "Remote work is allowed up to three days per week (remote-work-policy.pdf – Position 3, Section Eligibility)."

	res := v.Verify(context.Background(), answer, sampleFacts(), "")

	assert.True(t, res.Passed)
	assert.Equal(t, answer, res.FinalAnswer)
	assert.False(t, res.WasRewritten)
}

func TestVerifyRewriteReturnsRewrittenAnswer(t *testing.T) {
	v := newVerifier(&fakeChatModel{reply: `{"verdict": "rewrite", "issues": [{"kind": "missing-citation", "description": "second sentence lacks a citation", "excerpt": "..."}], "rewritten_answer": "Rewritten safe answer (remote-work-policy.pdf – Position 3, Section Eligibility)."}`})

	res := v.Verify(context.Background(), "draft answer", sampleFacts(), "")

	assert.False(t, res.Passed)
	assert.True(t, res.WasRewritten)
	assert.Equal(t, "Rewritten safe answer (remote-work-policy.pdf – Position 3, Section Eligibility).", res.FinalAnswer)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, IssueMissingCitation, res.Issues[0].Kind)
}

func TestVerifyRejectReturnsRefusal(t *testing.T) {
	v := newVerifier(&fakeChatModel{reply: `{"verdict": "reject", "issues": [{"kind": "restricted-info-leak", "description": "mentions a document outside the fact list", "excerpt": "..."}], "rewritten_answer": ""}`})

	res := v.Verify(context.Background(), "leaky answer", sampleFacts(), "")

	assert.False(t, res.Passed)
	assert.False(t, res.WasRewritten)
	assert.Equal(t, RefusalText, res.FinalAnswer)
}

func TestVerifyModelFailureFailsSafe(t *testing.T) {
	v := newVerifier(&fakeChatModel{err: errors.New("verifier model down")})

	res := v.Verify(context.Background(), "unverified answer", sampleFacts(), "")

	// 校验失败绝不放行原答案
	assert.False(t, res.Passed)
	assert.Equal(t, RefusalText, res.FinalAnswer)
}

func TestVerifyUnparsableOutputFailsSafe(t *testing.T) {
	v := newVerifier(&fakeChatModel{reply: "I think the answer looks mostly fine to me!"})

	res := v.Verify(context.Background(), "unverified answer", sampleFacts(), "")

	assert.False(t, res.Passed)
	assert.Equal(t, RefusalText, res.FinalAnswer)
}

func TestVerifyRewriteWithoutTextFailsSafe(t *testing.T) {
	v := newVerifier(&fakeChatModel{reply: `{"verdict": "rewrite", "issues": [], "rewritten_answer": "  "}`})

	res := v.Verify(context.Background(), "draft answer", sampleFacts(), "")

	assert.False(t, res.Passed)
	assert.False(t, res.WasRewritten)
	assert.Equal(t, RefusalText, res.FinalAnswer)
}
