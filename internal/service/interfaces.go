// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/mailmind/mailmind/internal/model"
)

// Storage defines the contract for the persistence layer: a simple keyed
// store over messages, the per-message classification cache, and bills.
type Storage interface {
	// Message operations. Messages are immutable once saved; re-saving an
	// existing ID is a no-op so duplicate delivery from the mail feed is safe.
	SaveMessages(ctx context.Context, messages []model.Message) error
	GetMessageByID(ctx context.Context, id string) (*model.Message, error)
	GetAllMessages(ctx context.Context) ([]model.Message, error)
	GetUnclassifiedMessages(ctx context.Context, ruleVersion string) ([]model.Message, error)

	// Classification cache, keyed by (message ID, rule-set version).
	SaveClassification(ctx context.Context, classification *model.ClassifiedMessage) error
	GetClassification(ctx context.Context, messageID, ruleVersion string) (*model.ClassifiedMessage, error)
	GetClassificationsByCategory(ctx context.Context, ruleVersion string, category model.Category) ([]model.ClassifiedMessage, error)

	// Bill operations, keyed by merge key.
	SaveBill(ctx context.Context, bill *model.Bill) error
	GetBillByID(ctx context.Context, id string) (*model.Bill, error)
	GetAllBills(ctx context.Context) ([]model.Bill, error)
	GetActiveBills(ctx context.Context) ([]model.Bill, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// ShadowStorage supports re-deriving all classification and bill state from
// scratch without disturbing live readers. Derived state is rebuilt into
// shadow tables, then promoted over the live tables in one transaction.
type ShadowStorage interface {
	Storage

	// ResetShadow clears the shadow derived-state tables.
	ResetShadow(ctx context.Context) error
	// Shadow returns a Storage view whose derived-state writes and reads
	// target the shadow tables. Message operations pass through unchanged.
	Shadow() Storage
	// PromoteShadow atomically replaces live derived state with the shadow
	// copy.
	PromoteShadow(ctx context.Context) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BatchStats shows the results of one processing pass.
type BatchStats struct {
	Duration      time.Duration
	Processed     int
	FromCache     int
	AIClassified  int
	RuleFallbacks int
	BillsCreated  int
	BillsMerged   int
	BillsPaid     int
}
