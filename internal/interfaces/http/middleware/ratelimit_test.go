package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	allowed   bool
	remaining int
	err       error
	lastKey   string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	f.lastKey = key
	return f.allowed, f.remaining, f.err
}

func rateLimitTestRouter(limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenant_id", "tenant-1")
		c.Set("user_id", "user-1")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerMinute: 10}, limiter))
	r.GET("/q", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitDeniedReturns429(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := rateLimitTestRouter(limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q", nil))

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "ratelimit:tenant-1:user-1:/q", limiter.lastKey)
}

func TestRateLimitAllowedExposesQuotaHeaders(t *testing.T) {
	limiter := &fakeLimiter{allowed: true, remaining: 7}
	r := rateLimitTestRouter(limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	r := rateLimitTestRouter(limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
