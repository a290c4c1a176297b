// Package classify implements rule-based message classification with an
// optional AI fallback.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mailmind/mailmind/internal/ai"
	"github.com/mailmind/mailmind/internal/common"
	"github.com/mailmind/mailmind/internal/model"
	"github.com/mailmind/mailmind/internal/rules"
)

// Store is the slice of the persistence layer the classifier needs: the
// per-message classification cache.
type Store interface {
	GetClassification(ctx context.Context, messageID, ruleVersion string) (*model.ClassifiedMessage, error)
	SaveClassification(ctx context.Context, classification *model.ClassifiedMessage) error
}

// Config holds configuration options for the classifier.
type Config struct {
	// ConfidenceThreshold is the minimum rule score to accept without
	// consulting the AI fallback.
	ConfidenceThreshold int
	// AITimeout bounds a single AI fallback call. A slow provider degrades
	// to the rule result instead of blocking the batch.
	AITimeout time.Duration
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 4,
		AITimeout:           5 * time.Second,
	}
}

// Classifier assigns a category to each message. Results are cached per
// (message ID, rule-set version) so repeated classification of the same
// message is a no-op.
type Classifier struct {
	ruleSet  *rules.RuleSet
	store    Store
	aiClient ai.Client
	logger   *slog.Logger
	memCache map[string]model.ClassifiedMessage
	cfg      Config
	mu       sync.RWMutex
}

// New creates a classifier. aiClient may be nil, in which case low-scoring
// messages keep their best rule-based category.
func New(ruleSet *rules.RuleSet, store Store, aiClient ai.Client, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 5 * time.Second
	}
	return &Classifier{
		ruleSet:  ruleSet,
		store:    store,
		aiClient: aiClient,
		cfg:      cfg,
		logger:   logger,
		memCache: make(map[string]model.ClassifiedMessage),
	}
}

// RuleVersion returns the version hash of the active rule set.
func (c *Classifier) RuleVersion() string {
	return c.ruleSet.Version()
}

// Classify assigns a category to one message. A cached result for the same
// message ID and rule-set version is returned without recomputation. AI
// fallback failures never propagate: the message degrades to its best
// rule-based guess with the rule-fallback source.
func (c *Classifier) Classify(ctx context.Context, msg model.Message) (model.ClassifiedMessage, error) {
	version := c.ruleSet.Version()

	c.mu.RLock()
	cached, ok := c.memCache[msg.ID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if stored, err := c.store.GetClassification(ctx, msg.ID, version); err == nil && stored != nil {
		c.remember(*stored)
		return *stored, nil
	}

	result := c.classify(ctx, msg, version)

	if err := c.store.SaveClassification(ctx, &result); err != nil {
		c.logger.Warn("failed to persist classification",
			"message_id", msg.ID,
			"error", err)
	}
	c.remember(result)

	return result, nil
}

// classify runs the rule evaluation and, when it is inconclusive, the AI
// fallback.
func (c *Classifier) classify(ctx context.Context, msg model.Message, version string) model.ClassifiedMessage {
	body := common.SanitizeHTML(msg.Text())
	evals := c.ruleSet.Evaluate(msg.Subject, body, msg.From)

	ruleCategory := model.CategoryRegular
	ruleScore := 0
	if len(evals) > 0 {
		ruleCategory = evals[0].Category
		ruleScore = evals[0].Score
	}

	result := model.ClassifiedMessage{
		Message:      msg,
		Category:     ruleCategory,
		Score:        ruleScore,
		Source:       model.SourceRule,
		RuleVersion:  version,
		ClassifiedAt: time.Now(),
	}

	if ruleScore >= c.cfg.ConfidenceThreshold || c.aiClient == nil {
		return result
	}

	suggestion, err := c.callAI(ctx, msg, body)
	if err != nil {
		c.logger.Debug("ai fallback failed, using rule result",
			"message_id", msg.ID,
			"category", ruleCategory,
			"error", err)
		result.Source = model.SourceRuleFallback
		return result
	}

	result.Category = model.ParseCategory(suggestion.Category)
	result.Source = model.SourceAI
	return result
}

// callAI invokes the fallback client under a bounded timeout. No retries:
// a failed message simply falls back for this run.
func (c *Classifier) callAI(ctx context.Context, msg model.Message, body string) (ai.Suggestion, error) {
	aiCtx, cancel := context.WithTimeout(ctx, c.cfg.AITimeout)
	defer cancel()

	text := normalizedText(msg, body)

	categories := make([]string, 0, len(model.Categories()))
	for _, cat := range model.Categories() {
		categories = append(categories, string(cat))
	}

	return c.aiClient.Classify(aiCtx, text, categories)
}

func (c *Classifier) remember(result model.ClassifiedMessage) {
	c.mu.Lock()
	c.memCache[result.Message.ID] = result
	c.mu.Unlock()
}

// normalizedText builds the lowercased search text the classifier and the
// AI fallback both operate on.
func normalizedText(msg model.Message, body string) string {
	return strings.ToLower(strings.Join([]string{
		msg.Subject,
		body,
		msg.From.String(),
	}, " "))
}
