package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/application/policy"
)

func TestRetrieveUnsatisfiableFilterNeverTouchesIndex(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{results: []*VectorSearchResult{remoteWorkChunk()}}
	r := NewRetriever(embedder, store, 5, 20, 0)

	chunks, err := r.Retrieve(context.Background(), "any query at all", policy.Filter{Unsatisfiable: true})

	require.NoError(t, err)
	assert.Empty(t, chunks)
	// 不可满足的过滤条件连 embedding 都不需要
	assert.Zero(t, embedder.calls)
	assert.Zero(t, store.calls)
}

func TestRetrieveScoreConversionAndThreshold(t *testing.T) {
	store := &fakeVectorStore{results: []*VectorSearchResult{
		{ID: "close", Source: "a.pdf", Text: "close match", Score: 0.1},
		{ID: "far", Source: "b.pdf", Text: "far match", Score: 0.9},
	}}
	r := NewRetriever(&fakeEmbedder{}, store, 5, 20, 0.5)

	chunks, err := r.Retrieve(context.Background(), "query", policy.Filter{TenantID: "t1", Levels: nil})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "close", chunks[0].ID)
	assert.InDelta(t, 0.9, chunks[0].Score, 1e-6)
}

func TestRetrieveEmbeddingErrorIsExplicit(t *testing.T) {
	embedder := &fakeEmbedder{err: assert.AnError}
	store := &fakeVectorStore{}
	r := NewRetriever(embedder, store, 5, 20, 0)

	chunks, err := r.Retrieve(context.Background(), "query", policy.Filter{TenantID: "t1"})

	// embedding 故障必须是显式错误，不能退化为空结果
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.Zero(t, store.calls)
}

func TestRetrieveEmptyCorpusIsNotAnError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeVectorStore{}, 5, 20, 0)

	chunks, err := r.Retrieve(context.Background(), "query", policy.Filter{TenantID: "t1"})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}
