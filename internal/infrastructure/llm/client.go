package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
)

// Config holds settings for an OpenAI-compatible chat completion endpoint
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat completion API to produce search keywords
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new keyword model client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}
}

// IsEnabled returns whether the client has an API key
func (c *Client) IsEnabled() bool {
	return c.config.APIKey != ""
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the parts of the API response we read
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateKeywords sends the prompt as a single user turn and returns the
// trimmed answer text
func (c *Client) GenerateKeywords(ctx context.Context, prompt string) (string, error) {
	if !c.IsEnabled() {
		return "", domain.ErrGeneratorDisabled
	}

	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrEmptyCompletion)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: blank answer", domain.ErrEmptyCompletion)
	}

	return answer, nil
}

// ChatCompletion performs a chat completion request, filling unset sampling
// parameters from the client configuration
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.IsEnabled() {
		return nil, domain.ErrGeneratorDisabled
	}

	if req.Model == "" {
		req.Model = c.config.Model
	}
	if req.Temperature == 0 {
		req.Temperature = c.config.Temperature
	}
	if req.TopP == 0 {
		req.TopP = c.config.TopP
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.config.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrUpstreamFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("model", req.Model).Msg("keyword model request failed")
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, truncateBody(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding completion: %v", domain.ErrParse, err)
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("choices", len(result.Choices)).
		Dur("elapsed", time.Since(start)).
		Msg("keyword model answered")

	return &result, nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
