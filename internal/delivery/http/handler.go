package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
	"github.com/shopsense/backend/internal/usecase"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Searcher runs product searches
type Searcher interface {
	Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searchService Searcher
	logger        zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(searchService Searcher, logger zerolog.Logger) *Handler {
	return &Handler{
		searchService: searchService,
		logger:        logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shopsense-backend",
		"version": Version,
	})
}

// Search handles product search requests
func (h *Handler) Search(c *gin.Context) {
	if h.searchService == nil {
		c.JSON(http.StatusServiceUnavailable, domain.ErrorResponse{
			Error: "Search service not configured",
		})
		return
	}

	var request domain.SearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if strings.TrimSpace(request.Query) == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Query is required"})
		return
	}

	if request.Filters != nil && request.Filters.SortBy != "" && !usecase.IsValidSort(request.Filters.SortBy) {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Invalid sort option",
			Details: request.Filters.SortBy,
		})
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), &request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filters := request.Filters.WithDefaults()
	products := usecase.ApplyPresentation(response.Products, filters)

	requestLogger(c, h.logger).Info().
		Str("query", request.Query).
		Bool("cached", response.Cached).
		Int("candidates", len(response.Products)).
		Int("returned", len(products)).
		Msg("search completed")

	c.JSON(http.StatusOK, domain.SearchResponse{
		Products: products,
		Cached:   response.Cached,
	})
}

// respondError maps a pipeline error onto the API error shape
func (h *Handler) respondError(c *gin.Context, err error) {
	if usecase.ResolveFallback(usecase.OpRequest, err) == usecase.ActionClientError {
		message := "Invalid request"
		if errors.Is(err, domain.ErrEmptyQuery) {
			message = "Query is required"
		}
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   message,
			Details: err.Error(),
		})
		return
	}

	requestLogger(c, h.logger).Error().Err(err).Str("kind", domain.Classify(err).String()).Msg("search failed")
	c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
		Error:   "Failed to process search",
		Details: err.Error(),
	})
}
