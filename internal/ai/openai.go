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

// openAIClient implements the Client interface for the OpenAI chat API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 100
	}

	return &openAIClient{
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

// openAIResponse mirrors the provider's chat completion payload.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends a classification request to OpenAI and normalizes the
// reply. Transient failures are retried; the caller's context bounds the
// whole exchange.
func (c *openAIClient) Classify(ctx context.Context, text string, categories []string) (Suggestion, error) {
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

func (c *openAIClient) classify(ctx context.Context, text string, categories []string) (Suggestion, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are an email triage classifier. Respond with ONLY a valid JSON object, no markdown or commentary.",
			},
			{
				"role":    "user",
				"content": buildPrompt(text, categories),
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return Suggestion{}, fmt.Errorf("%w: OpenAI API: %s", common.ErrRateLimit, string(body))
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Client errors won't heal on retry.
		return Suggestion{}, &common.RetryableError{
			Err:       fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Suggestion{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("no completion choices returned")
	}

	return parseSuggestion(response.Choices[0].Message.Content)
}
