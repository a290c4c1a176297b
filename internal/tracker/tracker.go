// Package tracker maintains the canonical bill collection: merging new
// extraction results, deriving statuses, and detecting payment confirmations.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mailmind/mailmind/internal/common"
	"github.com/mailmind/mailmind/internal/extract"
	"github.com/mailmind/mailmind/internal/model"
)

// Store is the slice of the persistence layer the tracker needs.
type Store interface {
	SaveBill(ctx context.Context, bill *model.Bill) error
	GetBillByID(ctx context.Context, id string) (*model.Bill, error)
	GetAllBills(ctx context.Context) ([]model.Bill, error)
	GetActiveBills(ctx context.Context) ([]model.Bill, error)
}

// Config holds configuration options for the tracker.
type Config struct {
	// Now is the clock; overridable in tests.
	Now func() time.Time
	// DueSoonWindow is how close a due date must be to flag due-soon.
	DueSoonWindow time.Duration
	// PaymentWindow bounds how long after the due date a confirmation
	// message still counts as paying this cycle.
	PaymentWindow time.Duration
	// HighAmountThreshold marks a due-soon bill critical.
	HighAmountThreshold float64
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		DueSoonWindow:       7 * 24 * time.Hour,
		PaymentWindow:       45 * 24 * time.Hour,
		HighAmountThreshold: 500.00,
		Now:                 time.Now,
	}
}

// Tracker merges bill facts into the canonical collection. All mutation
// goes through a single mutex: two concurrently extracted facts for the
// same provider must not both decide "no existing bill".
type Tracker struct {
	store  Store
	logger *slog.Logger
	cfg    Config
	mu     sync.Mutex
}

// New creates a tracker.
func New(store Store, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DueSoonWindow <= 0 {
		cfg.DueSoonWindow = 7 * 24 * time.Hour
	}
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = 45 * 24 * time.Hour
	}
	if cfg.HighAmountThreshold <= 0 {
		cfg.HighAmountThreshold = 500.00
	}
	return &Tracker{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Merge folds one extracted fact into the bill collection. It returns true
// when a new Bill was created, false when an existing one absorbed the fact.
func (t *Tracker) Merge(ctx context.Context, fact *model.BillFact) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := model.MergeKey(fact.Provider, fact.AccountSuffix)
	now := t.cfg.Now()

	existing, err := t.store.GetBillByID(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to look up bill %s: %w", key, err)
	}

	if existing == nil {
		bill := t.newBill(key, fact, now)
		if err := t.store.SaveBill(ctx, bill); err != nil {
			return false, fmt.Errorf("failed to create bill %s: %w", key, err)
		}
		t.logger.Info("created bill",
			"bill_id", key,
			"provider", fact.Provider,
			"amount", fact.Amount,
			"due_date", fact.DueDate.Format("2006-01-02"))
		return true, nil
	}

	if existing.HasSource(fact.MessageID) {
		// Duplicate delivery of a message already merged: no-op.
		return false, nil
	}

	switch {
	case existing.Status == model.BillStatusDismissed:
		// Dismissed bills are never revived; the source is still recorded
		// so a redelivered notice cannot re-create the alert.
		existing.AddSource(fact.MessageID)

	case existing.Status == model.BillStatusPaid && fact.DueDate.After(existing.DueDate):
		// A later due date on a paid bill starts a new billing cycle.
		existing.Status = model.BillStatusPending
		existing.ConfirmedBy = ""
		existing.Amount = fact.Amount
		existing.DueDate = fact.DueDate
		existing.Category = fact.Category
		if fact.PaymentLink != "" {
			existing.PaymentLink = fact.PaymentLink
		}
		existing.AddSource(fact.MessageID)
		t.logger.Info("started new billing cycle",
			"bill_id", key,
			"due_date", fact.DueDate.Format("2006-01-02"))

	case existing.Status == model.BillStatusPaid:
		// Straggler notice for an already-paid cycle.
		existing.AddSource(fact.MessageID)

	default:
		// Active bill: a newer notice supersedes an older one.
		if fact.DueDate.After(existing.DueDate) {
			existing.DueDate = fact.DueDate
			existing.Amount = fact.Amount
		}
		if existing.PaymentLink == "" && fact.PaymentLink != "" {
			existing.PaymentLink = fact.PaymentLink
		}
		if existing.AccountSuffix == "" && fact.AccountSuffix != "" {
			existing.AccountSuffix = fact.AccountSuffix
		}
		existing.AddSource(fact.MessageID)
	}

	existing.LastUpdated = now
	t.derive(existing, now)

	if err := t.store.SaveBill(ctx, existing); err != nil {
		return false, fmt.Errorf("failed to update bill %s: %w", key, err)
	}
	return false, nil
}

// newBill builds a fresh Bill from its first fact.
func (t *Tracker) newBill(key string, fact *model.BillFact, now time.Time) *model.Bill {
	bill := &model.Bill{
		ID:               key,
		Name:             billName(fact.Provider, fact.Category),
		Provider:         fact.Provider,
		AccountSuffix:    fact.AccountSuffix,
		Amount:           fact.Amount,
		DueDate:          fact.DueDate,
		Category:         fact.Category,
		Status:           model.BillStatusPending,
		PaymentLink:      fact.PaymentLink,
		SourceMessageIDs: []string{fact.MessageID},
		LowConfidenceKey: fact.AccountSuffix == "",
		LastUpdated:      now,
	}
	t.derive(bill, now)
	return bill
}

// VerifyPayment checks a classified message for a payment confirmation
// matching an active bill from the same provider. It returns the ID of the
// bill transitioned to paid, or empty when the message confirmed nothing.
func (t *Tracker) VerifyPayment(ctx context.Context, cm *model.ClassifiedMessage) (string, error) {
	if cm.Category != model.CategoryRegular && cm.Category != model.CategoryImportant {
		return "", nil
	}

	text := strings.ToLower(cm.Message.Subject + " " + cm.Message.Text())
	if !containsConfirmation(text) {
		return "", nil
	}

	provider := model.NormalizeProvider(extract.ProviderName(&cm.Message))
	if provider == "" {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bills, err := t.store.GetActiveBills(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load active bills: %w", err)
	}

	for i := range bills {
		bill := &bills[i]
		if model.NormalizeProvider(bill.Provider) != provider {
			continue
		}
		if cm.Message.Timestamp.After(bill.DueDate.Add(t.cfg.PaymentWindow)) {
			continue
		}

		bill.Status = model.BillStatusPaid
		bill.ConfirmedBy = cm.Message.ID
		bill.AddSource(cm.Message.ID)
		bill.LastUpdated = t.cfg.Now()

		if err := t.store.SaveBill(ctx, bill); err != nil {
			return "", fmt.Errorf("failed to mark bill %s paid: %w", bill.ID, err)
		}

		t.logger.Info("payment verified",
			"bill_id", bill.ID,
			"confirmed_by", cm.Message.ID)
		return bill.ID, nil
	}

	return "", nil
}

// confirmationKeywords are lexical payment-confirmation signals. Matching is
// heuristic: false negatives simply leave the bill awaiting dismissal.
var confirmationKeywords = []string{
	"payment received",
	"thank you for your payment",
	"payment confirmation",
	"receipt",
	"payment was successful",
	"successfully processed",
}

func containsConfirmation(text string) bool {
	for _, kw := range confirmationKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// RefreshStatuses re-derives status and priority for every active bill
// against the current clock. Terminal statuses are never touched.
func (t *Tracker) RefreshStatuses(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bills, err := t.store.GetActiveBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active bills: %w", err)
	}

	now := t.cfg.Now()
	for i := range bills {
		bill := &bills[i]
		before := bill.Status
		beforePriority := bill.Priority
		t.derive(bill, now)
		if bill.Status == before && bill.Priority == beforePriority {
			continue
		}
		bill.LastUpdated = now
		if err := t.store.SaveBill(ctx, bill); err != nil {
			return fmt.Errorf("failed to refresh bill %s: %w", bill.ID, err)
		}
	}
	return nil
}

// Dismiss soft-deletes a bill. Dismissed bills stay in storage so their
// merge key keeps absorbing duplicate notices.
func (t *Tracker) Dismiss(ctx context.Context, billID string) error {
	return t.transition(ctx, billID, model.BillStatusDismissed)
}

// MarkPaid records an explicit user confirmation of payment.
func (t *Tracker) MarkPaid(ctx context.Context, billID string) error {
	return t.transition(ctx, billID, model.BillStatusPaid)
}

func (t *Tracker) transition(ctx context.Context, billID string, status model.BillStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bill, err := t.store.GetBillByID(ctx, billID)
	if err != nil {
		return fmt.Errorf("failed to look up bill %s: %w", billID, err)
	}
	if bill == nil {
		return fmt.Errorf("bill %s: %w", billID, common.ErrNotFound)
	}
	if bill.Status == model.BillStatusDismissed {
		// Dismissal is final.
		return nil
	}

	bill.Status = status
	bill.LastUpdated = t.cfg.Now()

	if err := t.store.SaveBill(ctx, bill); err != nil {
		return fmt.Errorf("failed to save bill %s: %w", billID, err)
	}
	return nil
}

// ActiveAlerts returns the active bills with freshly derived statuses,
// most urgent first.
func (t *Tracker) ActiveAlerts(ctx context.Context) ([]model.Bill, error) {
	if err := t.RefreshStatuses(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bills, err := t.store.GetActiveBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bills: %w", err)
	}

	sortBills(bills)
	return bills, nil
}

// Summary computes the alert summary projection over the active bill set.
// It is derived on demand and never stored.
func (t *Tracker) Summary(ctx context.Context) (model.BillAlertSummary, error) {
	bills, err := t.ActiveAlerts(ctx)
	if err != nil {
		return model.BillAlertSummary{}, err
	}

	now := t.cfg.Now()
	var summary model.BillAlertSummary
	for i := range bills {
		bill := &bills[i]
		summary.Total++
		summary.TotalAmount += bill.Amount
		if bill.Status == model.BillStatusOverdue {
			summary.Overdue++
		}
		if bill.Priority == model.BillPriorityCritical {
			summary.Critical++
		}
		if !bill.DueDate.Before(now) && bill.DueDate.Before(now.Add(7*24*time.Hour)) {
			summary.DueThisWeek++
		}
	}
	return summary, nil
}

// derive recomputes status and priority from the due date and clock.
// Terminal statuses are left alone so paid and dismissed never regress.
func (t *Tracker) derive(bill *model.Bill, now time.Time) {
	if bill.Status.Terminal() {
		return
	}

	switch {
	case bill.DueDate.Before(now):
		bill.Status = model.BillStatusOverdue
	case bill.DueDate.Before(now.Add(t.cfg.DueSoonWindow)):
		bill.Status = model.BillStatusDueSoon
	default:
		bill.Status = model.BillStatusPending
	}

	bill.Priority = t.priority(bill, now)
}

// priority scales urgency by overdue state, days remaining, and amount.
func (t *Tracker) priority(bill *model.Bill, now time.Time) model.BillPriority {
	switch {
	case bill.Status == model.BillStatusOverdue:
		return model.BillPriorityCritical
	case bill.Status == model.BillStatusDueSoon && bill.Amount >= t.cfg.HighAmountThreshold:
		return model.BillPriorityCritical
	case bill.Status == model.BillStatusDueSoon || bill.Amount >= t.cfg.HighAmountThreshold:
		return model.BillPriorityHigh
	case bill.DueDate.Before(now.Add(30 * 24 * time.Hour)):
		return model.BillPriorityNormal
	default:
		return model.BillPriorityLow
	}
}

// billName derives a human-readable alert name.
func billName(provider string, category model.BillCategory) string {
	switch category {
	case model.BillCategorySubscription:
		return provider + " subscription"
	case model.BillCategoryOther:
		return provider + " bill"
	default:
		return fmt.Sprintf("%s %s bill", provider, category)
	}
}

var statusRank = map[model.BillStatus]int{
	model.BillStatusOverdue: 0,
	model.BillStatusDueSoon: 1,
	model.BillStatusPending: 2,
}

// sortBills orders by status severity, then due date, then ID for
// determinism.
func sortBills(bills []model.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if statusRank[bills[i].Status] != statusRank[bills[j].Status] {
			return statusRank[bills[i].Status] < statusRank[bills[j].Status]
		}
		if !bills[i].DueDate.Equal(bills[j].DueDate) {
			return bills[i].DueDate.Before(bills[j].DueDate)
		}
		return bills[i].ID < bills[j].ID
	})
}
