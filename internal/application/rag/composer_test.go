package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	wfprompt "sop-rag-api/internal/workflow/prompt"
)

func newComposer(m *fakeChatModel) *AnswerComposer {
	factory := &fakeFactory{models: map[string]*fakeChatModel{"gen": m}}
	return NewAnswerComposer(factory, wfprompt.NewRegistry(), "gen")
}

func sampleFacts() []Fact {
	return []Fact{{
		Text:      "Employees may work remotely up to three days per week with manager approval.",
		Source:    "remote-work-policy.pdf",
		Page:      3,
		Section:   "Eligibility",
		Relevance: RelevanceHigh,
	}}
}

func TestComposeEmptyFactsReturnsExactRefusal(t *testing.T) {
	m := &fakeChatModel{reply: "should never be used"}
	c := newComposer(m)

	answer := c.Compose(context.Background(), nil, "any question", "")

	// 拒答文案按字节精确比对
	assert.Equal(t, RefusalText, answer)
	assert.Zero(t, m.calls)
}

func TestComposeModelFailureReturnsRefusal(t *testing.T) {
	c := newComposer(&fakeChatModel{err: errors.New("provider down")})

	answer := c.Compose(context.Background(), sampleFacts(), "question", "")

	assert.Equal(t, RefusalText, answer)
}

func TestComposeBlankModelOutputReturnsRefusal(t *testing.T) {
	c := newComposer(&fakeChatModel{reply: "   \n  "})

	answer := c.Compose(context.Background(), sampleFacts(), "question", "")

	assert.Equal(t, RefusalText, answer)
}

func TestComposeReturnsModelAnswer(t *testing.T) {
	want := "Remote work is allowed up to three days per week (remote-work-policy.pdf – Position 3, Section Eligibility)."
	c := newComposer(&fakeChatModel{reply: want})

	answer := c.Compose(context.Background(), sampleFacts(), "question", "")

	assert.Equal(t, want, answer)
}
