// Package ai provides the optional AI classification fallback. Providers are
// treated as black boxes: each adapter normalizes its provider's payload
// shape into one canonical Suggestion at this boundary, and nothing past it
// trusts the category string.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Suggestion is the canonical result shape every provider normalizes into.
type Suggestion struct {
	Category   string
	Confidence float64
}

// Client defines the contract for AI classification providers.
type Client interface {
	Classify(ctx context.Context, text string, categories []string) (Suggestion, error)
}

// Config holds configuration for constructing a provider client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewClient creates a provider client from configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// buildPrompt creates the classification prompt shared by all providers.
func buildPrompt(text string, categories []string) string {
	categoryList := ""
	for _, cat := range categories {
		categoryList += fmt.Sprintf("- %s\n", cat)
	}

	return fmt.Sprintf(`Classify this email into exactly one of the categories below based on its content and sender.

Categories:
%s
Email text:
%s

Respond with ONLY a JSON object in this exact form, no other text:
{"category": "<category name>", "confidence": <0.0-1.0>}`,
		categoryList,
		text)
}
