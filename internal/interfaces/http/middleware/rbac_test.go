package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sop-rag-api/internal/domain/entity"
)

func TestHasPermissionUnknownRoleDeniedEverything(t *testing.T) {
	for _, perm := range []Permission{PermQueryAsk, PermDocsRead, PermDocsManage, PermAdminAccess} {
		assert.False(t, HasPermission(entity.Role("superuser"), perm))
		assert.False(t, HasPermission(entity.Role(""), perm))
	}
}

func TestHasPermissionHierarchy(t *testing.T) {
	assert.True(t, HasPermission(entity.RoleEmployee, PermQueryAsk))
	assert.False(t, HasPermission(entity.RoleEmployee, PermDocsManage))
	assert.True(t, HasPermission(entity.RoleManager, PermAuditRead))
	assert.False(t, HasPermission(entity.RoleManager, PermAdminAccess))
	assert.True(t, HasPermission(entity.RoleAdmin, PermDocsManage))
}

func TestRequirePermissionRejectsMissingRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/docs", RequirePermission(PermDocsRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionAllowsAuthorizedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("role", string(entity.RoleEmployee))
	})
	r.GET("/docs", RequirePermission(PermDocsRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
