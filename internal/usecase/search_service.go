package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
	"github.com/shopsense/backend/internal/infrastructure/amazon"
)

// Stage is a step of the search state machine
type Stage int

const (
	StageReceived Stage = iota
	StageCacheCheck
	StageCacheHit
	StageCacheMiss
	StageNormalize
	StageExtract
	StageScore
	StageFilter
	StageSort
	StageTruncate
	StageReviewEnrich
	StageCacheWrite
	StageDone
)

var stageNames = [...]string{
	StageReceived:     "received",
	StageCacheCheck:   "cache_check",
	StageCacheHit:     "cache_hit",
	StageCacheMiss:    "cache_miss",
	StageNormalize:    "normalize",
	StageExtract:      "extract",
	StageScore:        "score",
	StageFilter:       "filter",
	StageSort:         "sort",
	StageTruncate:     "truncate",
	StageReviewEnrich: "review_enrich",
	StageCacheWrite:   "cache_write",
	StageDone:         "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// SearchServiceConfig holds pipeline tuning for the search service
type SearchServiceConfig struct {
	CacheTTL        time.Duration
	OverFetchFactor int
	ReviewDelay     time.Duration
	EnrichReviews   bool
}

// SearchService runs the search pipeline with caching
type SearchService struct {
	cache       domain.CacheRepository
	marketplace domain.MarketplaceClient
	normalizer  *KeywordNormalizer
	config      SearchServiceConfig
	logger      zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSearchService creates a new search service. cache may be nil, in which
// case every request runs the full pipeline and nothing is stored.
func NewSearchService(
	cache domain.CacheRepository,
	marketplace domain.MarketplaceClient,
	normalizer *KeywordNormalizer,
	config SearchServiceConfig,
	logger zerolog.Logger,
) *SearchService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if config.OverFetchFactor < 1 {
		config.OverFetchFactor = 3
	}
	if config.ReviewDelay < 0 {
		config.ReviewDelay = 0
	}
	if normalizer == nil {
		normalizer = NewKeywordNormalizer(nil, 0, logger)
	}

	return &SearchService{
		cache:       cache,
		marketplace: marketplace,
		normalizer:  normalizer,
		config:      config,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// CacheKey normalizes a query into its cache key
func CacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Search answers a request from cache or by running the pipeline. The
// returned list is the over-fetched, relevance-sorted set; see
// ApplyPresentation for the caller-facing cut.
// Flow: check cache -> normalize -> fetch + extract -> score -> filter -> sort
// -> truncate -> reviews -> cache -> return
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	query := strings.TrimSpace(request.Query)
	key := CacheKey(query)
	filters := request.Filters.WithDefaults()
	log := s.logger.With().Str("query", key).Logger()
	s.enter(log, StageReceived)

	s.enter(log, StageCacheCheck)
	if products, ok := s.readCache(ctx, log, key); ok {
		s.enter(log, StageCacheHit)
		s.enter(log, StageDone)
		return &domain.SearchResponse{Products: products, Cached: true}, nil
	}
	s.enter(log, StageCacheMiss)

	s.enter(log, StageNormalize)
	keywords := s.normalizer.Normalize(ctx, query)
	log.Info().Str("keywords", keywords.Keywords).Str("source", string(keywords.Source)).Msg("keywords resolved")

	s.enter(log, StageExtract)
	products, err := s.fetchProducts(ctx, log, keywords.Keywords)
	if err != nil {
		return nil, err
	}

	s.enter(log, StageScore)
	Annotate(products, keywords.Keywords)

	s.enter(log, StageFilter)
	before := len(products)
	products, rule := ApplyFilters(products, filters)
	log.Info().Int("before", before).Int("after", len(products)).Str("rule", rule).Msg("products filtered")

	s.enter(log, StageSort)
	SortByRelevance(products)

	s.enter(log, StageTruncate)
	products = Truncate(products, overFetchLimit(filters.MaxResults, s.config.OverFetchFactor))

	s.enter(log, StageReviewEnrich)
	s.enrichReviews(ctx, log, products)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", err)
	}

	s.enter(log, StageCacheWrite)
	s.writeCache(ctx, log, key, products)

	s.enter(log, StageDone)
	return &domain.SearchResponse{Products: products, Cached: false}, nil
}

func (s *SearchService) enter(log zerolog.Logger, stage Stage) {
	log.Debug().Str("stage", stage.String()).Msg("search stage")
}

// readCache returns the cached products for key. Every failure is a miss.
func (s *SearchService) readCache(ctx context.Context, log zerolog.Logger, key string) ([]domain.Product, bool) {
	if s.cache == nil {
		return nil, false
	}

	entry, err := s.cache.Get(ctx, key)
	if err == nil && !entry.IsFresh(s.now(), s.config.CacheTTL) {
		err = fmt.Errorf("%w: entry from %s is stale", domain.ErrCacheMiss, entry.CreatedAt.Format(time.RFC3339))
	}

	var products []domain.Product
	if err == nil {
		if decodeErr := json.Unmarshal(entry.Results, &products); decodeErr != nil {
			err = fmt.Errorf("%w: cached results: %v", domain.ErrParse, decodeErr)
		}
	}

	if err != nil {
		action := ResolveFallback(OpCacheRead, err)
		event := log.Debug()
		if domain.Classify(err) != domain.KindCacheMiss {
			event = log.Warn()
		}
		event.Err(err).Str("action", string(action)).Msg("cache lookup failed")
		return nil, false
	}

	return products, true
}

// fetchProducts downloads and extracts the search page, degrading to the mock
// products on any upstream failure
func (s *SearchService) fetchProducts(ctx context.Context, log zerolog.Logger, keywords string) ([]domain.Product, error) {
	html, err := s.marketplace.FetchSearchPage(ctx, keywords)
	if err != nil {
		action := ResolveFallback(OpSearchFetch, err)
		log.Warn().Err(err).Str("action", string(action)).Msg("search page fetch failed")
		if action == ActionClientError {
			return nil, err
		}
		return amazon.MockProducts(), nil
	}

	products := amazon.ExtractProducts(html)
	log.Info().Int("count", len(products)).Msg("products extracted")
	return products, nil
}

// enrichReviews attaches reviews to each product sequentially, waiting
// ReviewDelay before every fetch. Products left without reviews get the
// placeholder review.
func (s *SearchService) enrichReviews(ctx context.Context, log zerolog.Logger, products []domain.Product) {
	for i := range products {
		var reviews []domain.Review
		if s.config.EnrichReviews && ctx.Err() == nil {
			reviews = s.fetchReviews(ctx, log, products[i].ASIN)
		}
		if len(reviews) == 0 {
			reviews = []domain.Review{amazon.PlaceholderReview(products[i].Rating)}
		}
		products[i].Reviews = reviews
	}
}

func (s *SearchService) fetchReviews(ctx context.Context, log zerolog.Logger, asin string) []domain.Review {
	if err := s.sleep(ctx, s.config.ReviewDelay); err != nil {
		return nil
	}

	html, err := s.marketplace.FetchReviewPage(ctx, asin)
	if err != nil {
		log.Warn().Err(err).Str("asin", asin).
			Str("action", string(ResolveFallback(OpReviewFetch, err))).
			Msg("review page fetch failed")
		return nil
	}

	reviews := amazon.ExtractReviews(html, s.now())
	log.Debug().Str("asin", asin).Int("reviews", len(reviews)).Msg("reviews extracted")
	return reviews
}

// overFetchLimit returns maxResults*factor, saturating at math.MaxInt
func overFetchLimit(maxResults, factor int) int {
	if maxResults <= 0 || factor <= 0 {
		return 0
	}
	if maxResults > math.MaxInt/factor {
		return math.MaxInt
	}
	return maxResults * factor
}

// writeCache stores the products. Failures are logged and dropped. An empty
// list is never stored.
func (s *SearchService) writeCache(ctx context.Context, log zerolog.Logger, key string, products []domain.Product) {
	if s.cache == nil {
		return
	}
	if len(products) == 0 {
		log.Warn().Msg("no products to cache")
		return
	}

	data, err := json.Marshal(products)
	if err == nil {
		err = s.cache.Put(ctx, &domain.CacheEntry{
			Query:     key,
			Results:   data,
			CreatedAt: s.now(),
		})
	}
	if err != nil {
		log.Warn().Err(err).Str("action", string(ResolveFallback(OpCacheWrite, err))).Msg("failed to cache results")
		return
	}
	log.Debug().Int("count", len(products)).Msg("results cached")
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
