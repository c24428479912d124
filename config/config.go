package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Search      SearchConfig      `mapstructure:"search"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// LLMConfig holds the keyword model configuration (OpenAI-compatible API)
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a model key is configured
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// MarketplaceConfig holds marketplace scraping configuration
type MarketplaceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ProxyAPIKey       string        `mapstructure:"proxy_api_key"`
	ProxyBaseURL      string        `mapstructure:"proxy_base_url"`
	SearchTimeout     time.Duration `mapstructure:"search_timeout"`
	ReviewTimeout     time.Duration `mapstructure:"review_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "redis", "postgres" or "sqlite"
	RedisURL string        `mapstructure:"redis_url"`
	DSN      string        `mapstructure:"dsn"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds pipeline tuning
type SearchConfig struct {
	OverFetchFactor int           `mapstructure:"over_fetch_factor"`
	ReviewDelay     time.Duration `mapstructure:"review_delay"`
	EnrichReviews   bool          `mapstructure:"enrich_reviews"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shopsense/")

	v.SetEnvPrefix("SHOPSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory when one exists.
// Variables already present in the environment are not overridden.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// LLM defaults
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.top_p", 0.8)
	v.SetDefault("llm.max_tokens", 20)
	v.SetDefault("llm.timeout", "10s")

	// Marketplace defaults
	v.SetDefault("marketplace.base_url", "https://www.amazon.com")
	v.SetDefault("marketplace.proxy_api_key", "")
	v.SetDefault("marketplace.proxy_base_url", "http://api.scraperapi.com")
	v.SetDefault("marketplace.search_timeout", "20s")
	v.SetDefault("marketplace.review_timeout", "15s")
	v.SetDefault("marketplace.requests_per_second", 4)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.ttl", "24h")

	// Search defaults
	v.SetDefault("search.over_fetch_factor", 3)
	v.SetDefault("search.review_delay", "1200ms")
	v.SetDefault("search.enrich_reviews", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Cache.Type {
	case "memory":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when cache type is 'redis' (set SHOPSENSE_CACHE_REDIS_URL)")
		}
	case "postgres", "sqlite":
		if config.Cache.DSN == "" {
			return fmt.Errorf("cache DSN is required when cache type is '%s' (set SHOPSENSE_CACHE_DSN)", config.Cache.Type)
		}
	default:
		return fmt.Errorf("cache type must be one of memory, redis, postgres, sqlite, got: %s", config.Cache.Type)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", config.Cache.TTL)
	}

	if config.Marketplace.SearchTimeout <= 0 || config.Marketplace.ReviewTimeout <= 0 {
		return fmt.Errorf("marketplace timeouts must be positive")
	}

	if config.Marketplace.RequestsPerSecond <= 0 {
		return fmt.Errorf("marketplace requests_per_second must be positive, got: %v", config.Marketplace.RequestsPerSecond)
	}

	if config.Search.OverFetchFactor < 1 {
		return fmt.Errorf("search over_fetch_factor must be at least 1, got: %d", config.Search.OverFetchFactor)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got: %s", config.Logging.Format)
	}

	return nil
}
