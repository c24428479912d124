// Package bootstrap wires configuration into a ready search service. Both the
// HTTP server and the CLI build their dependencies through it.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/config"
	"github.com/shopsense/backend/internal/domain"
	"github.com/shopsense/backend/internal/infrastructure/amazon"
	"github.com/shopsense/backend/internal/infrastructure/cache"
	"github.com/shopsense/backend/internal/infrastructure/llm"
	"github.com/shopsense/backend/internal/infrastructure/logging"
	"github.com/shopsense/backend/internal/usecase"
)

// CacheStore is a cache repository that holds resources
type CacheStore interface {
	domain.CacheRepository
	io.Closer
}

// App holds the wired application components
type App struct {
	Service     *usecase.SearchService
	Cache       CacheStore
	Marketplace *amazon.Client
	Generator   *llm.Client
}

// Close releases the cache backend
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	return a.Cache.Close()
}

// OpenCache opens the cache backend selected by cfg.Type
func OpenCache(ctx context.Context, cfg config.CacheConfig) (CacheStore, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemoryCache(cfg.TTL), nil
	case "redis":
		store, err := cache.OpenRedisCache(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "sqlite":
		driver := cache.DriverPostgres
		if cfg.Type == "sqlite" {
			driver = cache.DriverSQLite
		}
		store, err := cache.OpenSQLCache(ctx, driver, cfg.DSN, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
}

// New builds every dependency of the search pipeline from cfg. When
// useCache is false no cache backend is opened.
func New(ctx context.Context, cfg *config.Config, useCache bool, logger zerolog.Logger) (*App, error) {
	app := &App{}

	if useCache {
		store, err := OpenCache(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Type, err)
		}
		app.Cache = store
	}

	app.Marketplace = amazon.NewClient(amazon.ClientConfig{
		BaseURL:           cfg.Marketplace.BaseURL,
		ProxyAPIKey:       cfg.Marketplace.ProxyAPIKey,
		ProxyBaseURL:      cfg.Marketplace.ProxyBaseURL,
		SearchTimeout:     cfg.Marketplace.SearchTimeout,
		ReviewTimeout:     cfg.Marketplace.ReviewTimeout,
		RequestsPerSecond: cfg.Marketplace.RequestsPerSecond,
	}, logging.Component(logger, "marketplace"))

	app.Generator = llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logging.Component(logger, "llm"))

	var generator domain.KeywordGenerator
	if app.Generator.IsEnabled() {
		generator = app.Generator
	} else {
		logger.Warn().Msg("keyword model not configured, using local keyword extraction")
	}
	normalizer := usecase.NewKeywordNormalizer(generator, cfg.LLM.Timeout, logging.Component(logger, "keywords"))

	// A nil interface keeps the service from calling into a missing store
	var repository domain.CacheRepository
	if app.Cache != nil {
		repository = app.Cache
	}

	app.Service = usecase.NewSearchService(repository, app.Marketplace, normalizer, usecase.SearchServiceConfig{
		CacheTTL:        cfg.Cache.TTL,
		OverFetchFactor: cfg.Search.OverFetchFactor,
		ReviewDelay:     cfg.Search.ReviewDelay,
		EnrichReviews:   cfg.Search.EnrichReviews,
	}, logging.Component(logger, "search"))

	return app, nil
}
