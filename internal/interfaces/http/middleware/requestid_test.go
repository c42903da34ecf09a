package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	return r
}

func TestRequestIDKeepsWellFormedClientID(t *testing.T) {
	r := requestIDRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "client-trace_0042")
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-trace_0042", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "client-trace_0042", w.Body.String())
}

func TestRequestIDReplacesMalformedClientID(t *testing.T) {
	cases := map[string]string{
		"with spaces": "abc def",
		"injection":   "abc\"}\n{",
		"too long":    strings.Repeat("a", 65),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			r := requestIDRouter()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(RequestIDHeader, raw)
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			require.NotEmpty(t, got)
			// 不合规的值被丢弃，换成服务端生成的 ID
			assert.NotEqual(t, raw, got)
			assert.True(t, validRequestID(got))
		})
	}
}
