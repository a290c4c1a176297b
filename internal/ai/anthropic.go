package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mailmind/mailmind/internal/common"
	"github.com/mailmind/mailmind/internal/service"
)

// anthropicClient implements the Client interface for the Anthropic API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 100
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// anthropicResponse mirrors the provider's messages payload, which differs
// from the OpenAI shape: content is a list of typed blocks.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Classify sends a classification request to Anthropic and normalizes the
// reply. Transient failures are retried; the caller's context bounds the
// whole exchange.
func (c *anthropicClient) Classify(ctx context.Context, text string, categories []string) (Suggestion, error) {
	var suggestion Suggestion
	err := common.WithRetry(ctx, func() error {
		s, err := c.classify(ctx, text, categories)
		if err != nil {
			return err
		}
		suggestion = s
		return nil
	}, service.RetryOptions{MaxAttempts: 2, InitialDelay: 500 * time.Millisecond})
	return suggestion, err
}

func (c *anthropicClient) classify(ctx context.Context, text string, categories []string) (Suggestion, error) {
	requestBody := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": buildPrompt(text, categories),
			},
		},
		"temperature": c.temperature,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Suggestion{}, fmt.Errorf("%w: Anthropic API: %s", common.ErrRateLimit, string(body))
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Client errors won't heal on retry.
		return Suggestion{}, &common.RetryableError{
			Err:       fmt.Errorf("Anthropic API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("Anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Suggestion{}, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, block := range response.Content {
		if block.Type == "text" && block.Text != "" {
			return parseSuggestion(block.Text)
		}
	}

	return Suggestion{}, fmt.Errorf("no text content returned")
}
