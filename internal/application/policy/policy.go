// Package policy 实现基于角色层级的访问控制策略
//
// 策略是纯函数：给定角色和租户，得到可访问分级集合与检索前置过滤条件。
// 过滤条件只能作为向量检索的前置谓词下推执行，绝不允许先检索后过滤，
// 这是整个系统的安全边界：未授权的切片不能被排序、打分或进入模型上下文。
package policy

import (
	"sort"

	"sop-rag-api/internal/domain/entity"
)

// Hierarchy 角色与分级的层级表，构造时注入，之后不可变
type Hierarchy struct {
	Roles  map[entity.Role]int
	Levels map[entity.AccessLevel]int
}

// DefaultHierarchy 返回内置的 employee < manager < admin 层级表
func DefaultHierarchy() Hierarchy {
	roles := make(map[entity.Role]int)
	for _, r := range entity.AllRoles() {
		roles[r] = r.Rank()
	}
	levels := make(map[entity.AccessLevel]int)
	for _, l := range entity.AllAccessLevels() {
		levels[l] = l.Rank()
	}
	return Hierarchy{Roles: roles, Levels: levels}
}

// Filter 检索前置过滤条件
//
// 语义：(tenant_id == TenantID 或 切片无租户归属) 且
// (access_level ∈ Levels 或 access_level 未设置)。
// 无租户归属的切片对所有租户可见，这是对历史共享内容的兼容性安排；
// 未分级的切片按最低分级处理，对任何已知角色可见。
// Unsatisfiable 为 true 时条件不匹配任何切片，检索层必须直接返回空结果。
type Filter struct {
	TenantID      string
	Levels        []entity.AccessLevel
	Unsatisfiable bool
}

// AccessPolicy 访问策略，无状态、无 I/O
type AccessPolicy struct {
	h Hierarchy
}

// New 创建访问策略
func New(h Hierarchy) *AccessPolicy {
	return &AccessPolicy{h: h}
}

// AccessibleLevels 返回角色可访问的分级集合，按层级升序
// 未识别的角色返回空集合（fail-closed）
func (p *AccessPolicy) AccessibleLevels(role entity.Role) []entity.AccessLevel {
	rank, ok := p.h.Roles[role]
	if !ok {
		return nil
	}
	levels := make([]entity.AccessLevel, 0, len(p.h.Levels))
	for l, lr := range p.h.Levels {
		if lr <= rank {
			levels = append(levels, l)
		}
	}
	sort.Slice(levels, func(i, j int) bool {
		return p.h.Levels[levels[i]] < p.h.Levels[levels[j]]
	})
	return levels
}

// BuildFilter 构造检索前置过滤条件
// 角色无可访问分级时返回不可满足的条件，绝不退化为"匹配所有"
func (p *AccessPolicy) BuildFilter(role entity.Role, tenantID string) Filter {
	levels := p.AccessibleLevels(role)
	if len(levels) == 0 {
		return Filter{Unsatisfiable: true}
	}
	return Filter{
		TenantID: tenantID,
		Levels:   levels,
	}
}
