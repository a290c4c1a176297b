package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	bills map[string]model.Bill
}

func newFakeStore() *fakeStore {
	return &fakeStore{bills: make(map[string]model.Bill)}
}

func (s *fakeStore) SaveBill(_ context.Context, bill *model.Bill) error {
	s.bills[bill.ID] = *bill
	return nil
}

func (s *fakeStore) GetBillByID(_ context.Context, id string) (*model.Bill, error) {
	bill, ok := s.bills[id]
	if !ok {
		return nil, nil
	}
	return &bill, nil
}

func (s *fakeStore) GetAllBills(_ context.Context) ([]model.Bill, error) {
	out := make([]model.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	return out, nil
}

func (s *fakeStore) GetActiveBills(_ context.Context) ([]model.Bill, error) {
	var out []model.Bill
	for _, b := range s.bills {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

// testNow is the fixed clock for all tracker tests.
var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(store Store) *Tracker {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return testNow }
	return New(store, cfg, nil)
}

func powerCoFact(messageID string, dueDate time.Time, amount float64) *model.BillFact {
	return &model.BillFact{
		Provider:      "PowerCo",
		AccountSuffix: "4821",
		Amount:        amount,
		DueDate:       dueDate,
		Category:      model.BillCategoryUtility,
		MessageID:     messageID,
		MessageTime:   testNow,
	}
}

func TestTracker_MergeCreatesBill(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	created, err := tr.Merge(ctx, powerCoFact("m1", testNow.AddDate(0, 0, 20), 128.50))
	require.NoError(t, err)
	assert.True(t, created)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	require.NotNil(t, bill)

	assert.Equal(t, "PowerCo", bill.Provider)
	assert.Equal(t, "PowerCo utility bill", bill.Name)
	assert.Equal(t, model.BillStatusPending, bill.Status)
	assert.Equal(t, []string{"m1"}, bill.SourceMessageIDs)
	assert.False(t, bill.LowConfidenceKey)
}

func TestTracker_MergeKeyStability(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	first := testNow.AddDate(0, 0, 10)
	second := testNow.AddDate(0, 0, 40)

	created, err := tr.Merge(ctx, powerCoFact("m1", first, 100.00))
	require.NoError(t, err)
	assert.True(t, created)

	// Same provider and suffix from a second reminder: must merge, not fork.
	created, err = tr.Merge(ctx, powerCoFact("m2", second, 110.00))
	require.NoError(t, err)
	assert.False(t, created)

	bills, err := store.GetAllBills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 1)

	bill := bills[0]
	assert.Equal(t, second, bill.DueDate)
	assert.InDelta(t, 110.00, bill.Amount, 0.001)
	assert.ElementsMatch(t, []string{"m1", "m2"}, bill.SourceMessageIDs)
}

func TestTracker_MergeIdempotentPerMessage(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	fact := powerCoFact("m1", testNow.AddDate(0, 0, 20), 128.50)
	_, err := tr.Merge(ctx, fact)
	require.NoError(t, err)

	// Redelivery of the same message changes nothing.
	created, err := tr.Merge(ctx, fact)
	require.NoError(t, err)
	assert.False(t, created)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, bill.SourceMessageIDs)
}

func TestTracker_OlderNoticeDoesNotRegress(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	newer := testNow.AddDate(0, 0, 30)
	older := testNow.AddDate(0, 0, 15)

	_, err := tr.Merge(ctx, powerCoFact("m1", newer, 120.00))
	require.NoError(t, err)
	_, err = tr.Merge(ctx, powerCoFact("m2", older, 90.00))
	require.NoError(t, err)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, newer, bill.DueDate)
	assert.InDelta(t, 120.00, bill.Amount, 0.001)
	assert.ElementsMatch(t, []string{"m1", "m2"}, bill.SourceMessageIDs)
}

func TestTracker_PaidThenLaterDueDateStartsNewCycle(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	_, err := tr.Merge(ctx, powerCoFact("m1", testNow.AddDate(0, 0, 9), 128.50))
	require.NoError(t, err)
	require.NoError(t, tr.MarkPaid(ctx, "powerco:4821"))

	created, err := tr.Merge(ctx, powerCoFact("m2", testNow.AddDate(0, 1, 9), 131.00))
	require.NoError(t, err)
	assert.False(t, created, "new cycle reuses the existing bill")

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPending, bill.Status)
	assert.Empty(t, bill.ConfirmedBy)
	assert.InDelta(t, 131.00, bill.Amount, 0.001)
}

func TestTracker_PaidAbsorbsStragglerNotice(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	due := testNow.AddDate(0, 0, 9)
	_, err := tr.Merge(ctx, powerCoFact("m1", due, 128.50))
	require.NoError(t, err)
	require.NoError(t, tr.MarkPaid(ctx, "powerco:4821"))

	// Same due date redelivered by a second reminder: stays paid.
	_, err = tr.Merge(ctx, powerCoFact("m2", due, 128.50))
	require.NoError(t, err)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, bill.Status)
	assert.ElementsMatch(t, []string{"m1", "m2"}, bill.SourceMessageIDs)
}

func TestTracker_DismissedNeverRevived(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	_, err := tr.Merge(ctx, powerCoFact("m1", testNow.AddDate(0, 0, 9), 128.50))
	require.NoError(t, err)
	require.NoError(t, tr.Dismiss(ctx, "powerco:4821"))

	// Even a brand-new due date cannot resurrect a dismissed bill.
	_, err = tr.Merge(ctx, powerCoFact("m2", testNow.AddDate(0, 2, 0), 140.00))
	require.NoError(t, err)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusDismissed, bill.Status)
	assert.ElementsMatch(t, []string{"m1", "m2"}, bill.SourceMessageIDs)

	// And MarkPaid cannot override dismissal either.
	require.NoError(t, tr.MarkPaid(ctx, "powerco:4821"))
	bill, err = store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusDismissed, bill.Status)
}

func TestTracker_ProviderOnlyKeyIsLowConfidence(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	fact := &model.BillFact{
		Provider:  "StreamFlix",
		Amount:    19.99,
		DueDate:   testNow.AddDate(0, 0, 20),
		Category:  model.BillCategorySubscription,
		MessageID: "m1",
	}
	created, err := tr.Merge(ctx, fact)
	require.NoError(t, err)
	assert.True(t, created)

	bill, err := store.GetBillByID(ctx, "streamflix")
	require.NoError(t, err)
	require.NotNil(t, bill)
	assert.True(t, bill.LowConfidenceKey)
	assert.Equal(t, "StreamFlix subscription", bill.Name)
}

func TestTracker_StatusDerivation(t *testing.T) {
	tests := []struct {
		name       string
		dueDate    time.Time
		amount     float64
		wantStatus model.BillStatus
		wantPrio   model.BillPriority
	}{
		{
			name:       "overdue is critical",
			dueDate:    testNow.AddDate(0, 0, -2),
			amount:     50.00,
			wantStatus: model.BillStatusOverdue,
			wantPrio:   model.BillPriorityCritical,
		},
		{
			name:       "due soon high amount is critical",
			dueDate:    testNow.AddDate(0, 0, 3),
			amount:     800.00,
			wantStatus: model.BillStatusDueSoon,
			wantPrio:   model.BillPriorityCritical,
		},
		{
			name:       "due soon is high",
			dueDate:    testNow.AddDate(0, 0, 3),
			amount:     50.00,
			wantStatus: model.BillStatusDueSoon,
			wantPrio:   model.BillPriorityHigh,
		},
		{
			name:       "pending high amount is high",
			dueDate:    testNow.AddDate(0, 0, 20),
			amount:     800.00,
			wantStatus: model.BillStatusPending,
			wantPrio:   model.BillPriorityHigh,
		},
		{
			name:       "pending within a month is normal",
			dueDate:    testNow.AddDate(0, 0, 20),
			amount:     50.00,
			wantStatus: model.BillStatusPending,
			wantPrio:   model.BillPriorityNormal,
		},
		{
			name:       "distant bill is low",
			dueDate:    testNow.AddDate(0, 2, 0),
			amount:     50.00,
			wantStatus: model.BillStatusPending,
			wantPrio:   model.BillPriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tr := newTestTracker(store)
			ctx := context.Background()

			_, err := tr.Merge(ctx, powerCoFact("m1", tt.dueDate, tt.amount))
			require.NoError(t, err)

			bill, err := store.GetBillByID(ctx, "powerco:4821")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, bill.Status)
			assert.Equal(t, tt.wantPrio, bill.Priority)
		})
	}
}

func TestTracker_VerifyPayment(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	due := testNow.AddDate(0, 0, 9)
	_, err := tr.Merge(ctx, powerCoFact("m1", due, 128.50))
	require.NoError(t, err)

	confirmation := &model.ClassifiedMessage{
		Message: model.Message{
			ID:        "m2",
			Subject:   "Payment received",
			Body:      "Thank you for your payment of $128.50 to PowerCo.",
			From:      model.EmailAddress{Name: "PowerCo", Address: "no-reply@powerco.com"},
			Timestamp: testNow.AddDate(0, 0, 4),
		},
		Category: model.CategoryRegular,
		Source:   model.SourceRule,
	}

	billID, err := tr.VerifyPayment(ctx, confirmation)
	require.NoError(t, err)
	assert.Equal(t, "powerco:4821", billID)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, bill.Status)
	assert.Equal(t, "m2", bill.ConfirmedBy)
	assert.ElementsMatch(t, []string{"m1", "m2"}, bill.SourceMessageIDs)
}

func TestTracker_VerifyPaymentIgnoresMismatches(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	due := testNow.AddDate(0, 0, 9)
	_, err := tr.Merge(ctx, powerCoFact("m1", due, 128.50))
	require.NoError(t, err)

	tests := []struct {
		name string
		cm   *model.ClassifiedMessage
	}{
		{
			name: "different provider",
			cm: &model.ClassifiedMessage{
				Message: model.Message{
					ID:        "m2",
					Subject:   "Payment received",
					From:      model.EmailAddress{Name: "WaterWorks", Address: "billing@waterworks.com"},
					Timestamp: testNow,
				},
				Category: model.CategoryRegular,
			},
		},
		{
			name: "no confirmation vocabulary",
			cm: &model.ClassifiedMessage{
				Message: model.Message{
					ID:        "m3",
					Subject:   "Your statement is ready",
					From:      model.EmailAddress{Name: "PowerCo", Address: "no-reply@powerco.com"},
					Timestamp: testNow,
				},
				Category: model.CategoryRegular,
			},
		},
		{
			name: "outside the payment window",
			cm: &model.ClassifiedMessage{
				Message: model.Message{
					ID:        "m4",
					Subject:   "Payment received",
					From:      model.EmailAddress{Name: "PowerCo", Address: "no-reply@powerco.com"},
					Timestamp: due.AddDate(0, 0, 60),
				},
				Category: model.CategoryRegular,
			},
		},
		{
			name: "ineligible category",
			cm: &model.ClassifiedMessage{
				Message: model.Message{
					ID:        "m5",
					Subject:   "Payment received",
					From:      model.EmailAddress{Name: "PowerCo", Address: "no-reply@powerco.com"},
					Timestamp: testNow,
				},
				Category: model.CategoryWork,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billID, err := tr.VerifyPayment(ctx, tt.cm)
			require.NoError(t, err)
			assert.Empty(t, billID)
		})
	}

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	assert.NotEqual(t, model.BillStatusPaid, bill.Status)
}

func TestTracker_RefreshStatusesSkipsTerminal(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	// Paid bill whose due date has passed must stay paid.
	store.bills["powerco:4821"] = model.Bill{
		ID:       "powerco:4821",
		Provider: "PowerCo",
		DueDate:  testNow.AddDate(0, 0, -5),
		Status:   model.BillStatusPaid,
	}
	store.bills["streamflix"] = model.Bill{
		ID:       "streamflix",
		Provider: "StreamFlix",
		DueDate:  testNow.AddDate(0, 0, -1),
		Status:   model.BillStatusPending,
	}

	require.NoError(t, tr.RefreshStatuses(ctx))

	assert.Equal(t, model.BillStatusPaid, store.bills["powerco:4821"].Status)
	assert.Equal(t, model.BillStatusOverdue, store.bills["streamflix"].Status)
}

func TestTracker_ActiveAlertsOrder(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	facts := []*model.BillFact{
		{Provider: "Distant", Amount: 10, DueDate: testNow.AddDate(0, 2, 0), Category: model.BillCategoryOther, MessageID: "m1"},
		{Provider: "Soon", Amount: 10, DueDate: testNow.AddDate(0, 0, 3), Category: model.BillCategoryOther, MessageID: "m2"},
		{Provider: "Late", Amount: 10, DueDate: testNow.AddDate(0, 0, -3), Category: model.BillCategoryOther, MessageID: "m3"},
	}
	for _, f := range facts {
		_, err := tr.Merge(ctx, f)
		require.NoError(t, err)
	}
	require.NoError(t, tr.MarkPaid(ctx, "distant"))

	alerts, err := tr.ActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "late", alerts[0].ID)
	assert.Equal(t, "soon", alerts[1].ID)
}

func TestTracker_Summary(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	facts := []*model.BillFact{
		{Provider: "PowerCo", AccountSuffix: "4821", Amount: 128.50, DueDate: testNow.AddDate(0, 0, -2), Category: model.BillCategoryUtility, MessageID: "m1"},
		{Provider: "StreamFlix", Amount: 19.99, DueDate: testNow.AddDate(0, 0, 4), Category: model.BillCategorySubscription, MessageID: "m2"},
		{Provider: "SafeHome", Amount: 900.00, DueDate: testNow.AddDate(0, 0, 25), Category: model.BillCategoryInsurance, MessageID: "m3"},
		{Provider: "OldGym", Amount: 45.00, DueDate: testNow.AddDate(0, 0, 12), Category: model.BillCategoryOther, MessageID: "m4"},
	}
	for _, f := range facts {
		_, err := tr.Merge(ctx, f)
		require.NoError(t, err)
	}
	require.NoError(t, tr.Dismiss(ctx, "oldgym"))

	summary, err := tr.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Overdue)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 1, summary.DueThisWeek)
	assert.InDelta(t, 1048.49, summary.TotalAmount, 0.001)
}
