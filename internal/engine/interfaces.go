package engine

import (
	"context"

	"github.com/mailmind/mailmind/internal/model"
)

// Classifier assigns a category to a single message.
type Classifier interface {
	Classify(ctx context.Context, msg model.Message) (model.ClassifiedMessage, error)
	RuleVersion() string
}

// Extractor pulls a candidate bill fact out of a classified message.
type Extractor interface {
	Extract(cm *model.ClassifiedMessage) *model.BillFact
}

// Tracker folds facts and payment confirmations into the bill collection.
type Tracker interface {
	Merge(ctx context.Context, fact *model.BillFact) (bool, error)
	VerifyPayment(ctx context.Context, cm *model.ClassifiedMessage) (string, error)
	RefreshStatuses(ctx context.Context) error
}
