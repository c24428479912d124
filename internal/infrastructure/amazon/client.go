package amazon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
	"golang.org/x/time/rate"
)

// maxPageBytes caps how much of a marketplace page is read into memory
const maxPageBytes = 8 << 20

// ClientConfig holds marketplace client settings
type ClientConfig struct {
	BaseURL           string
	ProxyAPIKey       string
	ProxyBaseURL      string
	SearchTimeout     time.Duration
	ReviewTimeout     time.Duration
	RequestsPerSecond float64
}

// Client fetches search result and review pages from the marketplace
type Client struct {
	httpClient  *http.Client
	config      ClientConfig
	rateLimiter *rate.Limiter
	userAgents  []string
	nextAgent   atomic.Uint32
	logger      zerolog.Logger
}

// NewClient creates a marketplace client. All requests share one rate limiter.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.amazon.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProxyBaseURL == "" {
		cfg.ProxyBaseURL = "http://api.scraperapi.com"
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 20 * time.Second
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}

	return &Client{
		// Per-call deadlines come from the request context
		httpClient:  &http.Client{},
		config:      cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		},
		logger: logger,
	}
}

// UsesProxy reports whether requests are routed through the scraping proxy
func (c *Client) UsesProxy() bool {
	return c.config.ProxyAPIKey != ""
}

// SearchURL builds the marketplace search URL for the keywords
func (c *Client) SearchURL(keywords string) string {
	return fmt.Sprintf("%s/s?k=%s", c.config.BaseURL, url.QueryEscape(keywords))
}

// ReviewURL builds the most-recent-first review page URL for an item
func (c *Client) ReviewURL(asin string) string {
	return fmt.Sprintf("%s/product-reviews/%s?sortBy=recent", c.config.BaseURL, url.PathEscape(asin))
}

// FetchSearchPage downloads the search results page for the keywords
func (c *Client) FetchSearchPage(ctx context.Context, keywords string) (string, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return "", fmt.Errorf("%w: keywords are required", domain.ErrInvalidRequest)
	}
	return c.fetch(ctx, c.SearchURL(keywords), c.config.SearchTimeout)
}

// FetchReviewPage downloads the review page for a single item
func (c *Client) FetchReviewPage(ctx context.Context, asin string) (string, error) {
	asin = strings.TrimSpace(asin)
	if asin == "" {
		return "", fmt.Errorf("%w: asin is required", domain.ErrInvalidRequest)
	}
	return c.fetch(ctx, c.ReviewURL(asin), c.config.ReviewTimeout)
}

// requestURL wraps the target in the proxy URL when a proxy key is configured
func (c *Client) requestURL(target string) string {
	if !c.UsesProxy() {
		return target
	}
	params := url.Values{}
	params.Set("api_key", c.config.ProxyAPIKey)
	params.Set("url", target)
	params.Set("country_code", "us")
	return fmt.Sprintf("%s?%s", c.config.ProxyBaseURL, params.Encode())
}

// setBrowserHeaders makes a direct request look like a regular browser visit.
// Accept-Encoding is left to the transport so responses are decompressed.
func (c *Client) setBrowserHeaders(req *http.Request) {
	agent := c.userAgents[int(c.nextAgent.Add(1))%len(c.userAgents)]
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
}

// fetch executes a rate limited GET bounded by timeout and returns the body
func (c *Client) fetch(ctx context.Context, target string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(target), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if !c.UsesProxy() {
		c.setBrowserHeaders(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("marketplace request failed")
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", target).Msg("marketplace returned non-2xx")
		return "", fmt.Errorf("%w: status %d from %s", domain.ErrUpstreamStatus, resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, err)
	}

	c.logger.Debug().
		Str("url", target).
		Bool("proxy", c.UsesProxy()).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("marketplace page fetched")

	return string(body), nil
}
