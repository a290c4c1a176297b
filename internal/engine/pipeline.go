// Package engine orchestrates the message processing pipeline: classify,
// extract bill facts, merge them into tracked bills, and verify payments.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/mailmind/mailmind/internal/service"
)

// Config holds configuration options for the pipeline.
type Config struct {
	// OnProgress, when set, is called after each message finishes
	// classification.
	OnProgress func(done, total int)
	// Workers bounds concurrent classification. Extraction and merging
	// always run serially in timestamp order.
	Workers int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Pipeline runs messages through classification, bill extraction, and
// payment verification.
type Pipeline struct {
	storage    service.Storage
	classifier Classifier
	extractor  Extractor
	tracker    Tracker
	logger     *slog.Logger
	cfg        Config
}

// New creates a pipeline with the given dependencies.
func New(storage service.Storage, classifier Classifier, extractor Extractor, tracker Tracker, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Pipeline{
		storage:    storage,
		classifier: classifier,
		extractor:  extractor,
		tracker:    tracker,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessAll runs every stored message through the pipeline and returns
// statistics. The whole pass is idempotent: classifications come from the
// cache on repeat runs and bill merges deduplicate by source message.
func (p *Pipeline) ProcessAll(ctx context.Context) (*service.BatchStats, error) {
	messages, err := p.storage.GetAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return p.Process(ctx, messages)
}

// Process runs the given messages through the pipeline. Classification is
// parallel; bill merging happens serially in message timestamp order so the
// resulting bill state is deterministic regardless of worker scheduling.
func (p *Pipeline) Process(ctx context.Context, messages []model.Message) (*service.BatchStats, error) {
	start := time.Now()
	stats := &service.BatchStats{Processed: len(messages)}

	if len(messages) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	p.logger.Info("processing messages",
		"count", len(messages),
		"rule_version", p.classifier.RuleVersion(),
		"workers", p.cfg.Workers)

	classified, err := p.classifyParallel(ctx, messages, stats)
	if err != nil {
		return nil, err
	}

	// Merge pass: every extracted fact, oldest message first.
	for i := range classified {
		fact := p.extractor.Extract(&classified[i])
		if fact == nil {
			continue
		}
		created, err := p.tracker.Merge(ctx, fact)
		if err != nil {
			return nil, fmt.Errorf("failed to merge bill fact from %s: %w", fact.MessageID, err)
		}
		if created {
			stats.BillsCreated++
		} else {
			stats.BillsMerged++
		}
	}

	// Verification pass runs after all merges so a confirmation can settle
	// a bill first noticed later in the same batch.
	for i := range classified {
		billID, err := p.tracker.VerifyPayment(ctx, &classified[i])
		if err != nil {
			return nil, fmt.Errorf("failed to verify payment from %s: %w", classified[i].Message.ID, err)
		}
		if billID != "" {
			stats.BillsPaid++
		}
	}

	if err := p.tracker.RefreshStatuses(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh bill statuses: %w", err)
	}

	stats.Duration = time.Since(start)
	p.logger.Info("processing complete",
		"processed", stats.Processed,
		"from_cache", stats.FromCache,
		"ai_classified", stats.AIClassified,
		"rule_fallbacks", stats.RuleFallbacks,
		"bills_created", stats.BillsCreated,
		"bills_paid", stats.BillsPaid,
		"duration", stats.Duration)

	return stats, nil
}

// classifyParallel classifies messages with a bounded worker pool and
// returns results in the input order.
func (p *Pipeline) classifyParallel(ctx context.Context, messages []model.Message, stats *service.BatchStats) ([]model.ClassifiedMessage, error) {
	type outcome struct {
		err    error
		cm     model.ClassifiedMessage
		cached bool
	}

	ruleVersion := p.classifier.RuleVersion()
	outcomes := make([]outcome, len(messages))
	sem := make(chan struct{}, p.cfg.Workers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for i := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			msg := messages[i]

			cached, err := p.storage.GetClassification(ctx, msg.ID, ruleVersion)
			if err == nil && cached != nil {
				outcomes[i] = outcome{cm: *cached, cached: true}
			} else {
				cm, err := p.classifier.Classify(ctx, msg)
				outcomes[i] = outcome{cm: cm, err: err}
			}

			if p.cfg.OnProgress != nil {
				mu.Lock()
				done++
				p.cfg.OnProgress(done, len(messages))
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	classified := make([]model.ClassifiedMessage, 0, len(messages))
	for i, out := range outcomes {
		if out.err != nil {
			return nil, fmt.Errorf("failed to classify message %s: %w", messages[i].ID, out.err)
		}
		switch {
		case out.cached:
			stats.FromCache++
		case out.cm.Source == model.SourceAI:
			stats.AIClassified++
		case out.cm.Source == model.SourceRuleFallback:
			stats.RuleFallbacks++
		}
		classified = append(classified, out.cm)
	}
	return classified, nil
}
