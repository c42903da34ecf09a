package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/domain/entity"
)

func TestServiceAnswerSurvivesCallerCancellation(t *testing.T) {
	f := newPipelineFixture(t)
	svc := NewService(f.orch, nil, nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 管线在脱离取消的 context 上执行：共享同一次执行的等待方
	// 不应因首个调用方断开而拿到取消错误
	res := svc.Answer(ctx, QueryInput{
		Query:    "what is the remote work policy",
		Role:     entity.RoleEmployee,
		TenantID: "tenant-1",
	}, "")

	require.NotNil(t, res)
	require.True(t, res.Success)
	assert.NotEqual(t, ErrTagEmbeddingFailed, res.Metadata.ErrorTag)
	assert.Contains(t, res.Answer, "remote-work-policy.pdf")
}

func TestServiceCacheKeyVariesByRoleAndTenant(t *testing.T) {
	f := newPipelineFixture(t)
	svc := NewService(f.orch, nil, nil, nil, 0)

	base := QueryInput{Query: "q", Role: entity.RoleEmployee, TenantID: "t1"}
	otherRole := base
	otherRole.Role = entity.RoleAdmin
	otherTenant := base
	otherTenant.TenantID = "t2"

	k := svc.cacheKey(base)
	assert.NotEqual(t, k, svc.cacheKey(otherRole))
	assert.NotEqual(t, k, svc.cacheKey(otherTenant))
	assert.Equal(t, k, svc.cacheKey(base))
}
