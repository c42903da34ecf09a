package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
)

type fakeTenantRepo struct {
	tenants map[string]*entity.Tenant
}

func (f *fakeTenantRepo) Create(_ context.Context, t *entity.Tenant) error {
	f.tenants[t.ID] = t
	return nil
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	return f.tenants[id], nil
}

func (f *fakeTenantRepo) GetBySlug(_ context.Context, slug string) (*entity.Tenant, error) {
	for _, t := range f.tenants {
		if t.Slug == slug && t.Status != entity.TenantStatusDeleted {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTenantRepo) Update(_ context.Context, t *entity.Tenant) error {
	f.tenants[t.ID] = t
	return nil
}

func (f *fakeTenantRepo) Delete(_ context.Context, id string) error {
	return f.UpdateStatus(context.Background(), id, entity.TenantStatusDeleted)
}

func (f *fakeTenantRepo) List(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.Tenant], error) {
	return repository.NewPagedResult([]*entity.Tenant{}, 0, p), nil
}

func (f *fakeTenantRepo) UpdateStatus(_ context.Context, id string, status entity.TenantStatus) error {
	if t, ok := f.tenants[id]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTenantRepo) ExistsBySlug(_ context.Context, slug string) (bool, error) {
	for _, t := range f.tenants {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func tenantTestRouter(repo *fakeTenantRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTenantHandler(repo)
	r.POST("/tenants", h.Create)
	r.PUT("/tenants/:id/status", h.UpdateStatus)
	r.DELETE("/tenants/:id", h.Delete)
	return r
}

func TestTenantUpdateStatusSuspends(t *testing.T) {
	repo := &fakeTenantRepo{tenants: map[string]*entity.Tenant{
		"t-1": {ID: "t-1", Slug: "acme", Status: entity.TenantStatusActive},
	}}
	r := tenantTestRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/tenants/t-1/status",
		strings.NewReader(`{"status": "suspended"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, entity.TenantStatusSuspended, repo.tenants["t-1"].Status)
}

func TestTenantUpdateStatusRejectsDeleted(t *testing.T) {
	repo := &fakeTenantRepo{tenants: map[string]*entity.Tenant{
		"t-1": {ID: "t-1", Slug: "acme", Status: entity.TenantStatusActive},
	}}
	r := tenantTestRouter(repo)

	// 删除只能走 DELETE 接口
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/tenants/t-1/status",
		strings.NewReader(`{"status": "deleted"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, entity.TenantStatusActive, repo.tenants["t-1"].Status)
}

func TestTenantDeleteIsSoftAndReservesSlug(t *testing.T) {
	repo := &fakeTenantRepo{tenants: map[string]*entity.Tenant{
		"t-1": {ID: "t-1", Slug: "acme", Status: entity.TenantStatusActive},
	}}
	r := tenantTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tenants/t-1", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	// 记录保留，状态置为 deleted
	require.NotNil(t, repo.tenants["t-1"])
	assert.Equal(t, entity.TenantStatusDeleted, repo.tenants["t-1"].Status)

	// 已删除租户再删一次按不存在处理
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tenants/t-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// slug 永久占用，重建同名 slug 冲突
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tenants",
		strings.NewReader(`{"name": "Acme", "slug": "acme"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
