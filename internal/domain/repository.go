package domain

import (
	"context"
)

// CacheRepository stores search results keyed by normalized query.
// Put is an upsert; implementations rely on their store's atomicity.
type CacheRepository interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
}

// MarketplaceClient fetches raw marketplace pages
type MarketplaceClient interface {
	FetchSearchPage(ctx context.Context, keywords string) (string, error)
	FetchReviewPage(ctx context.Context, asin string) (string, error)
}

// KeywordGenerator turns a prompt into a short completion using a hosted text model
type KeywordGenerator interface {
	GenerateKeywords(ctx context.Context, prompt string) (string, error)
}
