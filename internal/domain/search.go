package domain

// Filter defaults used when the request omits a value
const (
	DefaultMinRating  = 4.0
	DefaultMinReviews = 50
	DefaultMaxResults = 5
	DefaultPriceMin   = 0.0
	DefaultPriceMax   = 1000.0
	DefaultSortBy     = SortRelevance

	// MaxResultsLimit caps MaxResults; larger requests are clamped to it
	MaxResultsLimit = 50
)

// Sort options accepted in SearchFilters.SortBy
const (
	SortRelevance   = "relevance"
	SortPriceHigh   = "price-high"
	SortPriceLow    = "price-low"
	SortRatingHigh  = "rating-high"
	SortRatingLow   = "rating-low"
	SortReviewsHigh = "reviews-high"
	SortReviewsLow  = "reviews-low"
)

// SearchFilters holds the request scoped thresholds. Zero values mean "use default".
type SearchFilters struct {
	MinRating  float64 `json:"minRating,omitempty"`
	MinReviews int     `json:"minReviews,omitempty"`
	MaxResults int     `json:"maxResults,omitempty"`
	PriceMin   float64 `json:"priceMin,omitempty"`
	PriceMax   float64 `json:"priceMax,omitempty"`
	SortBy     string  `json:"sortBy,omitempty"`
}

// WithDefaults returns a copy of the filters with every unset value resolved.
// MaxResults is clamped to MaxResultsLimit.
func (f *SearchFilters) WithDefaults() SearchFilters {
	resolved := SearchFilters{
		MinRating:  DefaultMinRating,
		MinReviews: DefaultMinReviews,
		MaxResults: DefaultMaxResults,
		PriceMin:   DefaultPriceMin,
		PriceMax:   DefaultPriceMax,
		SortBy:     DefaultSortBy,
	}
	if f == nil {
		return resolved
	}
	if f.MinRating > 0 {
		resolved.MinRating = f.MinRating
	}
	if f.MinReviews > 0 {
		resolved.MinReviews = f.MinReviews
	}
	if f.MaxResults > 0 {
		resolved.MaxResults = min(f.MaxResults, MaxResultsLimit)
	}
	if f.PriceMin > 0 {
		resolved.PriceMin = f.PriceMin
	}
	if f.PriceMax > 0 {
		resolved.PriceMax = f.PriceMax
	}
	if f.SortBy != "" {
		resolved.SortBy = f.SortBy
	}
	return resolved
}

// SearchRequest represents an inbound product search
type SearchRequest struct {
	Query   string         `json:"query"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// SearchResponse is the result of a product search
type SearchResponse struct {
	Products []Product `json:"products"`
	Cached   bool      `json:"cached"`
}

// ErrorResponse is returned to the client on failure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
