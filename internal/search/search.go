// Package search ranks stored messages against a free-text query.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/sahilm/fuzzy"
)

// subjectWeight boosts subject matches over body matches.
const subjectWeight = 2

// Store is the read-only slice of the persistence layer search needs.
type Store interface {
	GetAllMessages(ctx context.Context) ([]model.Message, error)
}

// Result is one ranked search hit.
type Result struct {
	Message model.Message
	Score   int
}

// Searcher ranks messages with fuzzy matching over subject, sender, and
// snippet text.
type Searcher struct {
	store  Store
	logger *slog.Logger
}

// New creates a searcher.
func New(store Store, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: store, logger: logger}
}

// Search returns up to limit messages ranked by match quality, best first.
// A non-positive limit means no limit.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	messages, err := s.store.GetAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	subjects := make([]string, len(messages))
	haystacks := make([]string, len(messages))
	for i, msg := range messages {
		subjects[i] = msg.Subject
		haystacks[i] = msg.Subject + " " + msg.From.String() + " " + msg.Text()
	}

	scores := make(map[int]int)
	for _, m := range fuzzy.Find(query, subjects) {
		scores[m.Index] += m.Score * subjectWeight
	}
	for _, m := range fuzzy.Find(query, haystacks) {
		if _, subjectHit := scores[m.Index]; !subjectHit {
			scores[m.Index] += m.Score
		}
	}

	results := make([]Result, 0, len(scores))
	for idx, score := range scores {
		results = append(results, Result{Message: messages[idx], Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Message.ID < results[j].Message.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("search complete", "query", query, "hits", len(results))
	return results, nil
}
