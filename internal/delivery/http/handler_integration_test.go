package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopsense/backend/config"
	"github.com/shopsense/backend/internal/domain"
	"github.com/shopsense/backend/internal/infrastructure/cache"
	"github.com/shopsense/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
		Cache: config.CacheConfig{
			Type: "memory",
			TTL:  24 * time.Hour,
		},
	}
}

// setupTestRouter creates a test router around the given searcher
func setupTestRouter(searcher Searcher) *gin.Engine {
	handler := NewHandler(searcher, zerolog.Nop())
	return SetupRouter(testConfig(), handler, zerolog.Nop())
}

// fixtureMarketplace serves the saved marketplace pages
type fixtureMarketplace struct {
	mu          sync.Mutex
	searchHTML  string
	reviewHTML  string
	searchCalls int
	reviewCalls int
}

func newFixtureMarketplace(t *testing.T) *fixtureMarketplace {
	t.Helper()
	search, err := os.ReadFile("../../infrastructure/amazon/testdata/search_results.html")
	require.NoError(t, err)
	reviews, err := os.ReadFile("../../infrastructure/amazon/testdata/reviews.html")
	require.NoError(t, err)
	return &fixtureMarketplace{searchHTML: string(search), reviewHTML: string(reviews)}
}

func (m *fixtureMarketplace) FetchSearchPage(ctx context.Context, keywords string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	return m.searchHTML, nil
}

func (m *fixtureMarketplace) FetchReviewPage(ctx context.Context, asin string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviewCalls++
	return m.reviewHTML, nil
}

func newFixtureService(t *testing.T) (*usecase.SearchService, *fixtureMarketplace) {
	t.Helper()
	marketplace := newFixtureMarketplace(t)
	memoryCache := cache.NewMemoryCache(24 * time.Hour)
	t.Cleanup(func() { _ = memoryCache.Close() })

	service := usecase.NewSearchService(memoryCache, marketplace, nil, usecase.SearchServiceConfig{
		CacheTTL:        24 * time.Hour,
		OverFetchFactor: 3,
		EnrichReviews:   true,
	}, zerolog.Nop())
	return service, marketplace
}

// stubSearcher returns a canned answer
type stubSearcher struct {
	response *domain.SearchResponse
	err      error
	calls    int
}

func (s *stubSearcher) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	s.calls++
	return s.response, s.err
}

func postSearch(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "shopsense-backend", response["service"])
		assert.Equal(t, Version, response["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})
}

func TestSearchEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "empty query", body: `{"query":""}`, wantError: "Query is required"},
		{name: "whitespace query", body: `{"query":"   "}`, wantError: "Query is required"},
		{name: "missing query", body: `{}`, wantError: "Query is required"},
		{name: "malformed JSON", body: `{"query":`, wantError: "Invalid request body"},
		{name: "unknown sort", body: `{"query":"bottle","filters":{"sortBy":"cheapest"}}`, wantError: "Invalid sort option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, marketplace := newFixtureService(t)
			router := setupTestRouter(service)

			w := postSearch(router, tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var response domain.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantError, response.Error)
			assert.Zero(t, marketplace.searchCalls)
		})
	}
}

func TestSearchEndpoint_EndToEnd(t *testing.T) {
	service, marketplace := newFixtureService(t)
	router := setupTestRouter(service)

	w := postSearch(router, `{"query":"I need a durable water bottle"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var response domain.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.False(t, response.Cached)
	require.NotEmpty(t, response.Products)
	assert.LessOrEqual(t, len(response.Products), domain.DefaultMaxResults)

	for i, p := range response.Products {
		assert.GreaterOrEqual(t, p.Rating, domain.DefaultMinRating)
		assert.GreaterOrEqual(t, p.ReviewCount, domain.DefaultMinReviews)
		assert.GreaterOrEqual(t, len(p.Reviews), 1)
		assert.LessOrEqual(t, len(p.Reviews), 3)
		if i > 0 {
			assert.GreaterOrEqual(t, response.Products[i-1].RelevanceScore, p.RelevanceScore)
		}
	}
	assert.Equal(t, 1, marketplace.searchCalls)

	t.Run("second identical request is served from cache", func(t *testing.T) {
		w := postSearch(router, `{"query":"  I NEED a durable water bottle "}`)
		require.Equal(t, http.StatusOK, w.Code)

		var cached domain.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cached))
		assert.True(t, cached.Cached)
		assert.Len(t, cached.Products, len(response.Products))
		assert.Equal(t, 1, marketplace.searchCalls)
	})

	t.Run("presentation filters apply to cached results", func(t *testing.T) {
		w := postSearch(router, `{"query":"I need a durable water bottle","filters":{"maxResults":2,"sortBy":"price-low"}}`)
		require.Equal(t, http.StatusOK, w.Code)

		var sorted domain.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sorted))
		require.Len(t, sorted.Products, 2)
		assert.LessOrEqual(t, sorted.Products[0].Price, sorted.Products[1].Price)
	})
}

func TestSearchEndpoint_OutOfRangeMaxResults(t *testing.T) {
	service, _ := newFixtureService(t)
	router := setupTestRouter(service)

	w := postSearch(router, `{"query":"durable water bottle","filters":{"maxResults":3074457345618258603}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response domain.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Products)
	assert.LessOrEqual(t, len(response.Products), domain.MaxResultsLimit)

	w = postSearch(router, `{"query":"durable water bottle"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var cached domain.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cached))
	assert.True(t, cached.Cached)
	assert.NotEmpty(t, cached.Products)
}

func TestSearchEndpoint_Errors(t *testing.T) {
	t.Run("service failure returns 500 with details", func(t *testing.T) {
		stub := &stubSearcher{err: errors.New("disk on fire")}
		router := setupTestRouter(stub)

		w := postSearch(router, `{"query":"water bottle"}`)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var response domain.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Failed to process search", response.Error)
		assert.Contains(t, response.Details, "disk on fire")
	})

	t.Run("validation errors from service return 400", func(t *testing.T) {
		tests := []struct {
			name      string
			err       error
			wantError string
		}{
			{"empty query", domain.ErrEmptyQuery, "Query is required"},
			{"other invalid input", fmt.Errorf("%w: bad filters", domain.ErrInvalidRequest), "Invalid request"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := setupTestRouter(&stubSearcher{err: tt.err})

				w := postSearch(router, `{"query":"water bottle"}`)

				require.Equal(t, http.StatusBadRequest, w.Code)
				var response domain.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.wantError, response.Error)
			})
		}
	})

	t.Run("unconfigured service returns 503", func(t *testing.T) {
		router := setupTestRouter(nil)

		w := postSearch(router, `{"query":"water bottle"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

// TestCORSIntegration tests CORS with actual endpoints
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router := setupTestRouter(nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "chrome-extension://test123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "chrome-extension://test123", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("search endpoint has CORS for localhost", func(t *testing.T) {
		stub := &stubSearcher{response: &domain.SearchResponse{Products: []domain.Product{}}}
		router := setupTestRouter(stub)

		req, _ := http.NewRequest("POST", "/api/v1/search", strings.NewReader(`{"query":"lamp"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

// TestRecoveryMiddleware tests that panics are recovered
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(nil)
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	})
}

// TestAPIVersioning tests API version routing
func TestAPIVersioning(t *testing.T) {
	t.Run("v1 routes are accessible", func(t *testing.T) {
		stub := &stubSearcher{response: &domain.SearchResponse{Products: []domain.Product{}}}
		router := setupTestRouter(stub)

		w := postSearch(router, `{"query":"lamp"}`)

		assert.NotEqual(t, http.StatusNotFound, w.Code)
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter(nil)

		req, _ := http.NewRequest("POST", "/search", strings.NewReader(`{"query":"lamp"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestJSONResponses verifies all endpoints return JSON
func TestJSONResponses(t *testing.T) {
	stub := &stubSearcher{response: &domain.SearchResponse{Products: []domain.Product{}}}
	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/health", ""},
		{"POST", "/api/v1/search", `{"query":"lamp"}`},
		{"POST", "/api/v1/search", `{"query":""}`},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(stub)

			req, _ := http.NewRequest(endpoint.method, endpoint.path, strings.NewReader(endpoint.body))
			if endpoint.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.True(t, json.Valid(w.Body.Bytes()))
		})
	}
}
