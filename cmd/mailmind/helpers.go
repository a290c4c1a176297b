package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mailmind/mailmind/internal/ai"
	"github.com/mailmind/mailmind/internal/classify"
	"github.com/mailmind/mailmind/internal/engine"
	"github.com/mailmind/mailmind/internal/extract"
	"github.com/mailmind/mailmind/internal/rules"
	"github.com/mailmind/mailmind/internal/service"
	"github.com/mailmind/mailmind/internal/storage"
	"github.com/mailmind/mailmind/internal/tracker"
	"github.com/spf13/viper"
)

// databasePath resolves the SQLite database location from config.
func databasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "mailmind", "mailmind.db"), nil
}

// openStorage opens the database and brings the schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// loadRules builds the active rule set: rules from config when present,
// the built-in defaults otherwise.
func loadRules() (*rules.RuleSet, error) {
	ruleList := rules.DefaultRules()

	if viper.IsSet("rules") {
		var configured []rules.Rule
		if err := viper.UnmarshalKey("rules", &configured); err != nil {
			return nil, fmt.Errorf("failed to parse configured rules: %w", err)
		}
		ruleList = configured
	}

	return rules.NewRuleSet(ruleList)
}

// newAIClient builds the optional AI fallback client. No configured
// provider means classification runs on rules alone.
func newAIClient() (ai.Client, error) {
	provider := viper.GetString("ai.provider")
	if provider == "" {
		return nil, nil
	}

	client, err := ai.NewClient(ai.Config{
		Provider:    provider,
		APIKey:      viper.GetString("ai.api_key"),
		Model:       viper.GetString("ai.model"),
		Timeout:     viper.GetDuration("ai.timeout"),
		Temperature: viper.GetFloat64("ai.temperature"),
		MaxTokens:   viper.GetInt("ai.max_tokens"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}
	return client, nil
}

// pipelineFactory wires the full processing pipeline over a storage view.
// The reclassify command reuses it to point a pipeline at the shadow tables.
func pipelineFactory(onProgress func(done, total int)) (engine.PipelineFactory, error) {
	ruleSet, err := loadRules()
	if err != nil {
		return nil, err
	}

	aiClient, err := newAIClient()
	if err != nil {
		return nil, err
	}

	classifierCfg := classify.DefaultConfig()
	if viper.IsSet("classifier.confidence_threshold") {
		classifierCfg.ConfidenceThreshold = viper.GetInt("classifier.confidence_threshold")
	}
	if viper.IsSet("classifier.ai_timeout") {
		classifierCfg.AITimeout = viper.GetDuration("classifier.ai_timeout")
	}

	trackerCfg := tracker.DefaultConfig()
	if viper.IsSet("tracker.due_soon_days") {
		trackerCfg.DueSoonWindow = time.Duration(viper.GetInt("tracker.due_soon_days")) * 24 * time.Hour
	}
	if viper.IsSet("tracker.payment_window_days") {
		trackerCfg.PaymentWindow = time.Duration(viper.GetInt("tracker.payment_window_days")) * 24 * time.Hour
	}
	if viper.IsSet("tracker.high_amount_threshold") {
		trackerCfg.HighAmountThreshold = viper.GetFloat64("tracker.high_amount_threshold")
	}

	engineCfg := engine.DefaultConfig()
	if viper.IsSet("pipeline.workers") {
		engineCfg.Workers = viper.GetInt("pipeline.workers")
	}
	engineCfg.OnProgress = onProgress

	return func(store service.Storage) *engine.Pipeline {
		classifier := classify.New(ruleSet, store, aiClient, classifierCfg, nil)
		extractor := extract.New(nil)
		billTracker := tracker.New(store, trackerCfg, nil)
		return engine.New(store, classifier, extractor, billTracker, engineCfg, nil)
	}, nil
}

// newTracker builds a standalone tracker for the bills subcommands.
func newTracker(store service.Storage) *tracker.Tracker {
	trackerCfg := tracker.DefaultConfig()
	if viper.IsSet("tracker.due_soon_days") {
		trackerCfg.DueSoonWindow = time.Duration(viper.GetInt("tracker.due_soon_days")) * 24 * time.Hour
	}
	if viper.IsSet("tracker.high_amount_threshold") {
		trackerCfg.HighAmountThreshold = viper.GetFloat64("tracker.high_amount_threshold")
	}
	return tracker.New(store, trackerCfg, nil)
}

// printStats renders batch statistics for the user.
func printStats(stats *service.BatchStats) {
	fmt.Printf("Processed %d messages in %s\n", stats.Processed, stats.Duration.Round(time.Millisecond))
	fmt.Printf("  from cache:     %d\n", stats.FromCache)
	fmt.Printf("  ai classified:  %d\n", stats.AIClassified)
	fmt.Printf("  rule fallbacks: %d\n", stats.RuleFallbacks)
	fmt.Printf("  bills created:  %d\n", stats.BillsCreated)
	fmt.Printf("  bills merged:   %d\n", stats.BillsMerged)
	fmt.Printf("  bills paid:     %d\n", stats.BillsPaid)
}
