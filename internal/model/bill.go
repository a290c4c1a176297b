package model

import (
	"time"
)

// BillStatus tracks the lifecycle of a bill within one billing cycle.
type BillStatus string

// Bill statuses. Transitions move forward only: paid and dismissed are
// terminal for the cycle, and a new due date on the same merge key starts a
// new cycle at pending.
const (
	BillStatusPending   BillStatus = "pending"
	BillStatusDueSoon   BillStatus = "due-soon"
	BillStatusOverdue   BillStatus = "overdue"
	BillStatusPaid      BillStatus = "paid"
	BillStatusDismissed BillStatus = "dismissed"
)

// Terminal reports whether the status ends the current billing cycle.
func (s BillStatus) Terminal() bool {
	return s == BillStatusPaid || s == BillStatusDismissed
}

// BillPriority is the derived urgency of a bill alert.
type BillPriority string

// Bill priorities.
const (
	BillPriorityLow      BillPriority = "low"
	BillPriorityNormal   BillPriority = "normal"
	BillPriorityHigh     BillPriority = "high"
	BillPriorityCritical BillPriority = "critical"
)

// BillCategory groups bills by the kind of obligation.
type BillCategory string

// Bill categories.
const (
	BillCategoryUtility      BillCategory = "utility"
	BillCategorySubscription BillCategory = "subscription"
	BillCategoryLoan         BillCategory = "loan"
	BillCategoryInsurance    BillCategory = "insurance"
	BillCategoryTelecom      BillCategory = "telecom"
	BillCategoryOther        BillCategory = "other"
)

// BillFact is one candidate billing signal extracted from a single message.
// Facts are merged into canonical Bills by the tracker; they are never
// stored on their own.
type BillFact struct {
	DueDate       time.Time
	MessageTime   time.Time
	Provider      string
	AccountSuffix string
	PaymentLink   string
	MessageID     string
	Category      BillCategory
	Amount        float64
}

// Bill is a tracked recurring payment obligation derived from one or more
// email notices. Its ID is the merge key (provider plus account suffix), not
// a message ID: multiple messages map to one Bill.
type Bill struct {
	DueDate          time.Time
	LastUpdated      time.Time
	ID               string
	Name             string
	Provider         string
	AccountSuffix    string
	PaymentLink      string
	ConfirmedBy      string
	Category         BillCategory
	Priority         BillPriority
	Status           BillStatus
	SourceMessageIDs []string
	Amount           float64
	LowConfidenceKey bool
}

// Active reports whether the bill should appear in alert listings.
func (b *Bill) Active() bool {
	return !b.Status.Terminal()
}

// HasSource reports whether the given message already contributed to the bill.
func (b *Bill) HasSource(messageID string) bool {
	for _, id := range b.SourceMessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// AddSource records a contributing message ID, keeping the set unique.
func (b *Bill) AddSource(messageID string) {
	if !b.HasSource(messageID) {
		b.SourceMessageIDs = append(b.SourceMessageIDs, messageID)
	}
}

// MergeKey derives the canonical bill identity from provider and account
// suffix. When no account suffix was extracted the key degrades to the
// provider alone, which can over-merge distinct accounts at one provider.
func MergeKey(provider, accountSuffix string) string {
	key := NormalizeProvider(provider)
	if accountSuffix != "" {
		key += ":" + accountSuffix
	}
	return key
}

// BillAlertSummary is a pure projection over the active bill set. It is
// recomputed on demand and never stored.
type BillAlertSummary struct {
	Total       int
	Overdue     int
	Critical    int
	DueThisWeek int
	TotalAmount float64
}
