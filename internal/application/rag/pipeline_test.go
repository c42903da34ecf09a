package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/domain/entity"
	wfprompt "sop-rag-api/internal/workflow/prompt"
)

// ---- fakes ----

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeVectorStore struct {
	results  []*VectorSearchResult
	err      error
	panicMsg string
	calls    int
	lastReq  *VectorSearchParams
}

func (f *fakeVectorStore) EnsureCollection(context.Context) error { return nil }

func (f *fakeVectorStore) SearchChunks(_ context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error) {
	f.calls++
	f.lastReq = params
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeVectorStore) InsertChunks(context.Context, []*VectorChunk) error { return nil }

func (f *fakeVectorStore) DeleteByDocument(context.Context, string, string) error { return nil }

// fakeChatModel 按 provider 返回固定回复或错误
// stall 为 true 时一直阻塞到 ctx 取消，用于测试阶段超时
type fakeChatModel struct {
	reply  string
	err    error
	tokens []string
	stall  bool
	calls  int
}

func (f *fakeChatModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	if f.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.tokens))
	for _, t := range f.tokens {
		msgs = append(msgs, schema.AssistantMessage(t, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type fakeFactory struct {
	models map[string]*fakeChatModel
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	m, ok := f.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return m, nil
}

// ---- fixture ----

type pipelineFixture struct {
	embedder *fakeEmbedder
	store    *fakeVectorStore
	extract  *fakeChatModel
	compose  *fakeChatModel
	verify   *fakeChatModel
	orch     *Orchestrator
}

func remoteWorkChunk() *VectorSearchResult {
	return &VectorSearchResult{
		ID:          "chunk-1",
		Score:       0.1, // distance，换算后相似度 0.9
		DocumentID:  "doc-1",
		Source:      "remote-work-policy.pdf",
		Page:        3,
		Section:     "Eligibility",
		AccessLevel: "employee",
		Text:        "Employees may work remotely up to three days per week with manager approval.",
	}
}

func validExtractJSON() string {
	return `{"has_content": true, "facts": [{"text": "Employees may work remotely up to three days per week with manager approval.", "source": "remote-work-policy.pdf", "page": 3, "section": "Eligibility", "relevance": "high"}]}`
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	return newPipelineFixtureWithTimeout(t, 30*time.Second)
}

func newPipelineFixtureWithTimeout(t *testing.T, stageTimeout time.Duration) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		embedder: &fakeEmbedder{},
		store:    &fakeVectorStore{results: []*VectorSearchResult{remoteWorkChunk()}},
		extract:  &fakeChatModel{reply: validExtractJSON()},
		compose:  &fakeChatModel{reply: "Employees may work remotely up to three days per week with manager approval (remote-work-policy.pdf – Position 3, Section Eligibility)."},
		verify:   &fakeChatModel{reply: `{"verdict": "compliant", "issues": [], "rewritten_answer": ""}`},
	}

	factory := &fakeFactory{models: map[string]*fakeChatModel{
		"ext": f.extract,
		"gen": f.compose,
		"ver": f.verify,
	}}
	registry := wfprompt.NewRegistry()
	p := policy.New(policy.DefaultHierarchy())

	f.orch = NewOrchestrator(
		p,
		NewRetriever(f.embedder, f.store, 5, 20, 0),
		NewFactExtractor(factory, registry, "ext"),
		NewAnswerComposer(factory, registry, "gen"),
		NewComplianceVerifier(factory, registry, "ver"),
		stageTimeout,
		ModelConfig{Extraction: "ext", Generation: "gen", Verification: "ver"},
	)
	return f
}

// ---- scenarios ----

func TestAnswerQueryHappyPath(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.True(t, res.Success)
	assert.Contains(t, res.Answer, "remote-work-policy.pdf")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, Source{Document: "remote-work-policy.pdf", Page: 3, Section: "Eligibility"}, res.Sources[0])
	assert.Equal(t, "passed", res.Metadata.Verification)
	assert.Equal(t, 1, res.Metadata.ChunkCount)
	assert.Equal(t, 1, res.Metadata.FactCount)
	assert.Equal(t, []entity.AccessLevel{entity.AccessLevelEmployee}, res.Metadata.AccessibleLevels)
	assert.Empty(t, res.Metadata.ErrorTag)
}

func TestAnswerQueryNoAuthorizedChunks(t *testing.T) {
	f := newPipelineFixture(t)
	// 语料里只有管理员级内容：索引按过滤条件直接返回空
	f.store.results = nil

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.True(t, res.Success)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0, res.Metadata.ChunkCount)
	// 后续模型阶段不应被触达
	assert.Zero(t, f.extract.calls)
	assert.Zero(t, f.compose.calls)
	assert.Zero(t, f.verify.calls)
}

func TestAnswerQueryEmptyQuery(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query: "   ",
		Role:  entity.RoleEmployee,
	})

	require.False(t, res.Success)
	assert.Equal(t, ErrTagInvalidQuery, res.Metadata.ErrorTag)
	assert.Equal(t, RefusalText, res.Answer)
	// 输入校验失败时不执行任何阶段
	assert.Zero(t, f.embedder.calls)
	assert.Zero(t, f.store.calls)
}

func TestAnswerQueryUnknownRole(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query: "what is the remote work policy",
		Role:  entity.Role("bogus"),
	})

	require.False(t, res.Success)
	assert.Equal(t, ErrTagInvalidRole, res.Metadata.ErrorTag)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Zero(t, f.embedder.calls)
}

func TestAnswerQueryVerifierRewrite(t *testing.T) {
	f := newPipelineFixture(t)
	f.verify.reply = `{"verdict": "rewrite", "issues": [{"kind": "unsupported-claim", "description": "claim about five days not in facts", "excerpt": "five days"}], "rewritten_answer": "Remote work is allowed up to three days per week (remote-work-policy.pdf – Position 3, Section Eligibility)."}`

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.True(t, res.Success)
	assert.Equal(t, "Remote work is allowed up to three days per week (remote-work-policy.pdf – Position 3, Section Eligibility).", res.Answer)
	assert.Equal(t, "rewritten", res.Metadata.Verification)
	assert.NotEmpty(t, res.Sources)
}

func TestAnswerQueryEmbeddingFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.embedder.err = errors.New("embedding service down")

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.False(t, res.Success)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Equal(t, ErrTagEmbeddingFailed, res.Metadata.ErrorTag)
	assert.Zero(t, f.store.calls)
}

func TestAnswerQueryVectorIndexFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.err = errors.New("milvus unavailable")

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.False(t, res.Success)
	assert.Equal(t, ErrTagEmbeddingFailed, res.Metadata.ErrorTag)
	assert.Equal(t, RefusalText, res.Answer)
}

func TestAnswerQueryNoFactsExtracted(t *testing.T) {
	f := newPipelineFixture(t)
	f.extract.reply = `{"has_content": false, "facts": []}`

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the death star thermal exhaust port",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.True(t, res.Success)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 1, res.Metadata.ChunkCount)
	assert.Equal(t, 0, res.Metadata.FactCount)
	assert.Zero(t, f.compose.calls)
	assert.Zero(t, f.verify.calls)
}

func TestAnswerQueryFabricatedSourceDiscarded(t *testing.T) {
	f := newPipelineFixture(t)
	// 模型编造了输入切片之外的来源：事实必须被丢弃，管线走拒答
	f.extract.reply = `{"has_content": true, "facts": [{"text": "something", "source": "made-up.pdf", "page": 1, "section": "A", "relevance": "high"}]}`

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	require.True(t, res.Success)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Empty(t, res.Sources)
}

func TestAnswerQueryComposerFailureFallsBackToRefusal(t *testing.T) {
	f := newPipelineFixture(t)
	f.compose.err = errors.New("model overloaded")

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	// 合成失败是兜底拒答路径，不是管线失败
	require.True(t, res.Success)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.Metadata.ErrorTag)
}

func TestAnswerQueryPanicIsContained(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.panicMsg = "index client state corrupted"

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	// 任何阶段 panic 都收敛为失败结果，对外仍是拒答文案
	require.NotNil(t, res)
	require.False(t, res.Success)
	assert.Equal(t, ErrTagInternal, res.Metadata.ErrorTag)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Empty(t, res.Sources)
}

func TestAnswerQueryStageTimeoutFailsPipeline(t *testing.T) {
	f := newPipelineFixtureWithTimeout(t, 50*time.Millisecond)
	f.extract.stall = true

	res := f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	// 阶段超时与阶段失败同路径
	require.False(t, res.Success)
	assert.Equal(t, ErrTagGenerationFailed, res.Metadata.ErrorTag)
	assert.Equal(t, RefusalText, res.Answer)
	assert.Zero(t, f.compose.calls)
}

func TestAnswerQueryFilterPushdown(t *testing.T) {
	f := newPipelineFixture(t)

	f.orch.AnswerQuery(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleManager,
		TenantID: "tenant-1",
	})

	require.NotNil(t, f.store.lastReq)
	assert.Equal(t, "tenant-1", f.store.lastReq.Filter.TenantID)
	assert.Equal(t, []entity.AccessLevel{entity.AccessLevelEmployee, entity.AccessLevelManager}, f.store.lastReq.Filter.Levels)
	assert.False(t, f.store.lastReq.Filter.Unsatisfiable)
}

func TestAnswerQueryStream(t *testing.T) {
	f := newPipelineFixture(t)
	f.compose.tokens = []string{"Remote work ", "is allowed up to three days per week ", "(remote-work-policy.pdf – Position 3, Section Eligibility)."}

	events := f.orch.AnswerQueryStream(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	var tokens []string
	var final *PipelineResult
	for ev := range events {
		switch ev.Type {
		case StreamEventToken:
			require.Nil(t, final, "tokens must not arrive after the final envelope")
			tokens = append(tokens, ev.Token)
		case StreamEventFinal:
			final = ev.Result
		}
	}

	require.NotNil(t, final)
	require.True(t, final.Success)
	assert.Equal(t, strings.Join(tokens, ""), final.Answer)
	assert.Len(t, final.Sources, 1)
	assert.Equal(t, "passed", final.Metadata.Verification)
}

func TestAnswerQueryStreamRefusalEmitsNoTokens(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.results = nil

	events := f.orch.AnswerQueryStream(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	var tokenCount int
	var final *PipelineResult
	for ev := range events {
		switch ev.Type {
		case StreamEventToken:
			tokenCount++
		case StreamEventFinal:
			final = ev.Result
		}
	}

	assert.Zero(t, tokenCount, "refusal must be decided before any token is emitted")
	require.NotNil(t, final)
	assert.Equal(t, RefusalText, final.Answer)
}

func TestAnswerQueryStreamVerifierOverridesTokens(t *testing.T) {
	f := newPipelineFixture(t)
	f.compose.tokens = []string{"Remote work is allowed five days per week."}
	f.verify.reply = `{"verdict": "reject", "issues": [{"kind": "unsupported-claim", "description": "five days is not supported", "excerpt": "five days"}], "rewritten_answer": ""}`

	events := f.orch.AnswerQueryStream(context.Background(), QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	})

	var final *PipelineResult
	for ev := range events {
		if ev.Type == StreamEventFinal {
			final = ev.Result
		}
	}

	// final 信封是权威答案：校验拒绝后覆盖已流出的 token
	require.NotNil(t, final)
	assert.Equal(t, RefusalText, final.Answer)
	assert.Empty(t, final.Sources)
	assert.Equal(t, "refused", final.Metadata.Verification)
}
