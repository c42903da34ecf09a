package milvus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/domain/entity"
)

func TestBuildFilterExprTenantScoped(t *testing.T) {
	expr := buildFilterExpr(policy.Filter{
		TenantID: "acme",
		Levels:   []entity.AccessLevel{entity.AccessLevelEmployee, entity.AccessLevelManager},
	})

	assert.Equal(t,
		`(tenant_id == "acme" || tenant_id == "") && (access_level == "employee" || access_level == "manager" || access_level == "")`,
		expr)
}

func TestBuildFilterExprNoTenantSeesOnlyGlobal(t *testing.T) {
	expr := buildFilterExpr(policy.Filter{
		Levels: []entity.AccessLevel{entity.AccessLevelEmployee},
	})

	assert.Equal(t,
		`tenant_id == "" && (access_level == "employee" || access_level == "")`,
		expr)
}

// 未分级切片按最低分级处理，任何角色的表达式都必须放行它们
func TestBuildFilterExprAlwaysAdmitsUnleveledChunks(t *testing.T) {
	for _, role := range entity.AllRoles() {
		expr := buildFilterExpr(policy.Filter{
			TenantID: "t1",
			Levels:   role.AccessibleLevels(),
		})
		assert.Contains(t, expr, `access_level == ""`, "role %s", role)
	}
}

func TestBuildFilterExprSkipsBlankLevels(t *testing.T) {
	expr := buildFilterExpr(policy.Filter{
		TenantID: "t1",
		Levels:   []entity.AccessLevel{"  ", entity.AccessLevelAdmin},
	})

	assert.Equal(t,
		`(tenant_id == "t1" || tenant_id == "") && (access_level == "admin" || access_level == "")`,
		expr)
}

func TestPartitionName(t *testing.T) {
	assert.Equal(t, GlobalPartition, PartitionName(""))
	assert.Equal(t, GlobalPartition, PartitionName("  "))
	assert.Equal(t, "tenant_acme", PartitionName("acme"))
}
