package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailmind/mailmind/internal/service"
)

// PipelineFactory builds a pipeline bound to the given storage. The
// reclassifier uses it to point a fresh pipeline at the shadow tables.
type PipelineFactory func(store service.Storage) *Pipeline

// Reclassifier rebuilds all derived state from the stored messages under
// the current rule set. Live classifications and bills keep serving reads
// until the rebuilt state is promoted in one step, so a failed run leaves
// everything untouched.
type Reclassifier struct {
	storage service.ShadowStorage
	factory PipelineFactory
	logger  *slog.Logger
}

// NewReclassifier creates a reclassifier.
func NewReclassifier(storage service.ShadowStorage, factory PipelineFactory, logger *slog.Logger) *Reclassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reclassifier{
		storage: storage,
		factory: factory,
		logger:  logger,
	}
}

// Run rebuilds classifications and bills into the shadow tables and
// promotes them over the live tables on success.
func (r *Reclassifier) Run(ctx context.Context) (*service.BatchStats, error) {
	r.logger.Info("starting reclassification")

	if err := r.storage.ResetShadow(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset shadow state: %w", err)
	}

	pipeline := r.factory(r.storage.Shadow())

	stats, err := pipeline.ProcessAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reclassification failed, live state unchanged: %w", err)
	}

	if err := r.storage.PromoteShadow(ctx); err != nil {
		return nil, fmt.Errorf("failed to promote rebuilt state: %w", err)
	}

	r.logger.Info("reclassification complete",
		"processed", stats.Processed,
		"bills_created", stats.BillsCreated,
		"duration", stats.Duration)

	return stats, nil
}
