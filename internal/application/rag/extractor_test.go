package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfprompt "sop-rag-api/internal/workflow/prompt"
)

func newExtractor(m *fakeChatModel) *FactExtractor {
	factory := &fakeFactory{models: map[string]*fakeChatModel{"ext": m}}
	return NewFactExtractor(factory, wfprompt.NewRegistry(), "ext")
}

func sampleChunks() []RetrievedChunk {
	return []RetrievedChunk{{
		ID:      "chunk-1",
		Source:  "remote-work-policy.pdf",
		Page:    3,
		Section: "Eligibility",
		Text:    "Employees may work remotely up to three days per week with manager approval.",
		Score:   0.9,
	}}
}

func TestExtractParsesFacts(t *testing.T) {
	e := newExtractor(&fakeChatModel{reply: validExtractJSON()})

	res, err := e.Extract(context.Background(), sampleChunks(), "remote work", "")

	require.NoError(t, err)
	require.True(t, res.HasContent)
	require.Len(t, res.Facts, 1)
	f := res.Facts[0]
	assert.Equal(t, "remote-work-policy.pdf", f.Source)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, "Eligibility", f.Section)
	assert.Equal(t, RelevanceHigh, f.Relevance)
}

func TestExtractEmptyChunksSkipsModel(t *testing.T) {
	m := &fakeChatModel{reply: validExtractJSON()}
	e := newExtractor(m)

	res, err := e.Extract(context.Background(), nil, "remote work", "")

	require.NoError(t, err)
	assert.False(t, res.HasContent)
	assert.Zero(t, m.calls)
}

func TestExtractUnparsableOutputIsNoContent(t *testing.T) {
	e := newExtractor(&fakeChatModel{reply: "sure, here are some facts I found..."})

	res, err := e.Extract(context.Background(), sampleChunks(), "remote work", "")

	// 解析失败是拒答路径，不是错误
	require.NoError(t, err)
	assert.False(t, res.HasContent)
	assert.Empty(t, res.Facts)
}

func TestExtractDiscardsFabricatedSources(t *testing.T) {
	e := newExtractor(&fakeChatModel{reply: `{"has_content": true, "facts": [
		{"text": "real excerpt", "source": "remote-work-policy.pdf", "page": 3, "section": "Eligibility", "relevance": "high"},
		{"text": "invented excerpt", "source": "secret-admin-handbook.pdf", "page": 9, "section": "X", "relevance": "high"}
	]}`})

	res, err := e.Extract(context.Background(), sampleChunks(), "remote work", "")

	require.NoError(t, err)
	require.True(t, res.HasContent)
	require.Len(t, res.Facts, 1)
	assert.Equal(t, "remote-work-policy.pdf", res.Facts[0].Source)
}

func TestExtractAllFactsFabricatedIsNoContent(t *testing.T) {
	e := newExtractor(&fakeChatModel{reply: `{"has_content": true, "facts": [
		{"text": "invented excerpt", "source": "made-up.pdf", "page": 1, "section": "A", "relevance": "high"}
	]}`})

	res, err := e.Extract(context.Background(), sampleChunks(), "remote work", "")

	require.NoError(t, err)
	assert.False(t, res.HasContent)
}

func TestExtractModelErrorPropagates(t *testing.T) {
	e := newExtractor(&fakeChatModel{err: assert.AnError})

	_, err := e.Extract(context.Background(), sampleChunks(), "remote work", "")

	// 模型调用失败是基础设施错误，与“无相关内容”不同
	require.Error(t, err)
}

func TestNormalizeRelevance(t *testing.T) {
	assert.Equal(t, RelevanceHigh, normalizeRelevance(" HIGH "))
	assert.Equal(t, RelevanceLow, normalizeRelevance("low"))
	assert.Equal(t, RelevanceMedium, normalizeRelevance("medium"))
	assert.Equal(t, RelevanceMedium, normalizeRelevance("whatever"))
}
