// Package entity 定义领域实体
package entity

// Role 用户角色，角色之间存在全序的权限层级
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// AccessLevel 文档分级，与角色共享同一组名称
type AccessLevel string

const (
	AccessLevelEmployee AccessLevel = "employee"
	AccessLevelManager  AccessLevel = "manager"
	AccessLevelAdmin    AccessLevel = "admin"
)

// roleRank 角色层级，数值越大权限越高
// 未知角色不在表内，查询方必须按"无权限"处理
var roleRank = map[Role]int{
	RoleEmployee: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

// levelRank 分级层级，与 roleRank 同序
var levelRank = map[AccessLevel]int{
	AccessLevelEmployee: 1,
	AccessLevelManager:  2,
	AccessLevelAdmin:    3,
}

// AllRoles 按层级升序返回所有已知角色
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleAdmin}
}

// AllAccessLevels 按层级升序返回所有已知分级
func AllAccessLevels() []AccessLevel {
	return []AccessLevel{AccessLevelEmployee, AccessLevelManager, AccessLevelAdmin}
}

// IsValid 检查角色是否在已知层级表中
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank 返回角色层级；未知角色返回 0
func (r Role) Rank() int {
	return roleRank[r]
}

// IsValid 检查分级是否在已知层级表中
func (l AccessLevel) IsValid() bool {
	_, ok := levelRank[l]
	return ok
}

// Rank 返回分级层级；未知分级返回 0
func (l AccessLevel) Rank() int {
	return levelRank[l]
}

// CanAccess 判断角色能否访问指定分级的内容
// 未知角色或未知分级一律判定为不可访问
func (r Role) CanAccess(l AccessLevel) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	lr, ok := levelRank[l]
	if !ok {
		return false
	}
	return rr >= lr
}

// AccessibleLevels 返回角色可访问的全部分级，按层级升序
// 未知角色返回空切片
func (r Role) AccessibleLevels() []AccessLevel {
	rr, ok := roleRank[r]
	if !ok {
		return nil
	}
	levels := make([]AccessLevel, 0, len(levelRank))
	for _, l := range AllAccessLevels() {
		if levelRank[l] <= rr {
			levels = append(levels, l)
		}
	}
	return levels
}
