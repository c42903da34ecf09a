package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/domain/entity"
)

func TestAccessibleLevels(t *testing.T) {
	p := New(DefaultHierarchy())

	tests := []struct {
		name string
		role entity.Role
		want []entity.AccessLevel
	}{
		{
			name: "employee sees only employee tier",
			role: entity.RoleEmployee,
			want: []entity.AccessLevel{entity.AccessLevelEmployee},
		},
		{
			name: "manager sees employee and manager tiers",
			role: entity.RoleManager,
			want: []entity.AccessLevel{entity.AccessLevelEmployee, entity.AccessLevelManager},
		},
		{
			name: "admin sees all tiers",
			role: entity.RoleAdmin,
			want: []entity.AccessLevel{entity.AccessLevelEmployee, entity.AccessLevelManager, entity.AccessLevelAdmin},
		},
		{
			name: "unknown role sees nothing",
			role: entity.Role("bogus"),
			want: nil,
		},
		{
			name: "empty role sees nothing",
			role: entity.Role(""),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.AccessibleLevels(tt.role)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessibleLevelsMonotonic(t *testing.T) {
	p := New(DefaultHierarchy())

	ordered := entity.AllRoles()
	for i := 0; i < len(ordered)-1; i++ {
		lower := p.AccessibleLevels(ordered[i])
		higher := p.AccessibleLevels(ordered[i+1])
		require.NotEmpty(t, lower)
		// 高层级角色的可见集合必须是低层级角色可见集合的超集
		for _, l := range lower {
			assert.Contains(t, higher, l, "role %s must see everything %s sees", ordered[i+1], ordered[i])
		}
		assert.Greater(t, len(higher), len(lower))
	}
}

func TestBuildFilter(t *testing.T) {
	p := New(DefaultHierarchy())

	t.Run("known role carries tenant and levels", func(t *testing.T) {
		f := p.BuildFilter(entity.RoleManager, "tenant-1")
		require.False(t, f.Unsatisfiable)
		assert.Equal(t, "tenant-1", f.TenantID)
		assert.Equal(t, []entity.AccessLevel{entity.AccessLevelEmployee, entity.AccessLevelManager}, f.Levels)
	})

	t.Run("tenant-less identity still gets a satisfiable filter", func(t *testing.T) {
		f := p.BuildFilter(entity.RoleEmployee, "")
		require.False(t, f.Unsatisfiable)
		assert.Empty(t, f.TenantID)
		assert.NotEmpty(t, f.Levels)
	})

	t.Run("unknown role yields unsatisfiable filter", func(t *testing.T) {
		f := p.BuildFilter(entity.Role("bogus"), "tenant-1")
		assert.True(t, f.Unsatisfiable)
		assert.Empty(t, f.Levels)
	})

	t.Run("unsatisfiable never degrades to match-everything", func(t *testing.T) {
		f := p.BuildFilter(entity.Role(""), "")
		assert.True(t, f.Unsatisfiable)
		assert.Empty(t, f.Levels)
		assert.Empty(t, f.TenantID)
	})
}

func TestCustomHierarchy(t *testing.T) {
	h := Hierarchy{
		Roles:  map[entity.Role]int{"intern": 1, "lead": 2},
		Levels: map[entity.AccessLevel]int{"public": 1, "restricted": 2},
	}
	p := New(h)

	assert.Equal(t, []entity.AccessLevel{"public"}, p.AccessibleLevels("intern"))
	assert.Equal(t, []entity.AccessLevel{"public", "restricted"}, p.AccessibleLevels("lead"))
	// 内置角色在自定义层级表下同样按未识别处理
	assert.Nil(t, p.AccessibleLevels(entity.RoleAdmin))
}
