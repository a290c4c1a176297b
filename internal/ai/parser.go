package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseSuggestion extracts the canonical Suggestion from a provider's text
// reply. Providers are told to answer with bare JSON, but replies wrapped in
// markdown fences or surrounding prose are tolerated.
func parseSuggestion(content string) (Suggestion, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Suggestion{}, fmt.Errorf("no JSON object in response: %q", content)
	}

	var parsed struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return Suggestion{}, fmt.Errorf("failed to parse suggestion: %w", err)
	}

	if parsed.Category == "" {
		return Suggestion{}, fmt.Errorf("empty category in response")
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	return Suggestion{
		Category:   parsed.Category,
		Confidence: parsed.Confidence,
	}, nil
}
