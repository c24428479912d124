package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://abcdefg12345"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches first",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{},
			want:           false,
		},
		{
			name:           "localhost port wildcard",
			origin:         "http://localhost:5173",
			allowedOrigins: []string{"http://localhost:*"},
			want:           true,
		},
		{
			name:           "partial wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-*"},
			want:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		method         string
		wantStatus     int
		wantCORS       bool
	}{
		{
			name:           "allowed origin - GET request",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORS:       true,
		},
		{
			name:           "allowed origin - OPTIONS request",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			wantCORS:       true,
		},
		{
			name:           "disallowed origin is rejected",
			origin:         "http://evil.com",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusForbidden,
			wantCORS:       false,
		},
		{
			name:           "no origin header",
			origin:         "",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORS:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowedOrigins))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			corsHeader := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantCORS {
				assert.Equal(t, tt.origin, corsHeader)
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, corsHeader)
			}
		})
	}
}

func TestCORSMiddleware_PreflightRequest(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"chrome-extension://*"}))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "chrome-extension://abcdefg12345")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "chrome-extension://abcdefg12345", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
}

func TestRequestIDMiddleware(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestIDMiddleware())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString(requestIDKey))
		})
		return router
	}

	t.Run("generates an id when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		id := w.Header().Get(requestIDHeader)
		require.NotEmpty(t, id)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagates the caller's id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newRouter := func(perMinute int) *gin.Engine {
		router := gin.New()
		router.Use(RateLimitMiddleware(perMinute))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})
		return router
	}

	send := func(router *gin.Engine, ip string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("rejects requests over the burst", func(t *testing.T) {
		router := newRouter(2)

		assert.Equal(t, http.StatusOK, send(router, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, send(router, "10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(router, "10.0.0.1"))
	})

	t.Run("limits each client separately", func(t *testing.T) {
		router := newRouter(1)

		assert.Equal(t, http.StatusOK, send(router, "10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(router, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, send(router, "10.0.0.2"))
	})

	t.Run("zero disables limiting", func(t *testing.T) {
		router := newRouter(0)
		for i := 0; i < 20; i++ {
			require.Equal(t, http.StatusOK, send(router, "10.0.0.1"))
		}
	})
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	limiter := newIPRateLimiter(1)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.Equal(t, 2, limiter.size())

	// 10.0.0.2 stays active, 10.0.0.1 goes quiet
	now = now.Add(2 * time.Minute)
	limiter.allow("10.0.0.2")
	now = now.Add(limiterIdleTTL - time.Minute)
	limiter.allow("10.0.0.2")

	assert.Equal(t, 1, limiter.size())

	// an evicted client starts with a full bucket
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.Equal(t, 2, limiter.size())
}

func TestRecoveryMiddleware_ReturnsJSON(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to process search")
	assert.Contains(t, w.Body.String(), "boom")
}
