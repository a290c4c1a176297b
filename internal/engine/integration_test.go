package engine

import (
	"context"
	"testing"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/mailmind/mailmind/internal/service"
	"github.com/mailmind/mailmind/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_SQLiteEndToEnd(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	due := engineNow.AddDate(0, 0, 20)
	messages := []model.Message{
		testutil.BillNotice("m1", "PowerCo", "$128.50", due, engineNow.Add(-48*time.Hour)),
		testutil.PaymentConfirmation("m2", "PowerCo", engineNow.Add(-24*time.Hour)),
		testutil.PlainMessage("m3", engineNow.Add(-12*time.Hour)),
	}
	require.NoError(t, store.SaveMessages(ctx, messages))

	stats, err := buildPipeline(t, store).ProcessAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.BillsCreated)
	assert.Equal(t, 1, stats.BillsPaid)

	bill, err := store.GetBillByID(ctx, "powerco:4821")
	require.NoError(t, err)
	require.NotNil(t, bill)
	assert.Equal(t, model.BillStatusPaid, bill.Status)
	assert.Equal(t, "m2", bill.ConfirmedBy)
}

func TestReclassifier_SQLiteDeterminism(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	due := engineNow.AddDate(0, 0, 20)
	messages := []model.Message{
		testutil.BillNotice("m1", "PowerCo", "$128.50", due, engineNow.Add(-48*time.Hour)),
		testutil.PaymentConfirmation("m2", "PowerCo", engineNow.Add(-24*time.Hour)),
		testutil.PlainMessage("m3", engineNow.Add(-12*time.Hour)),
	}
	require.NoError(t, store.SaveMessages(ctx, messages))

	factory := func(s service.Storage) *Pipeline {
		return buildPipeline(t, s)
	}

	// Two full rebuilds from the same history must land on identical state.
	r := NewReclassifier(store, factory, nil)
	_, err := r.Run(ctx)
	require.NoError(t, err)

	first, err := store.GetAllBills(ctx)
	require.NoError(t, err)

	_, err = r.Run(ctx)
	require.NoError(t, err)

	second, err := store.GetAllBills(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].DueDate.UTC(), second[i].DueDate.UTC())
		assert.InDelta(t, first[i].Amount, second[i].Amount, 0.001)
		assert.ElementsMatch(t, first[i].SourceMessageIDs, second[i].SourceMessageIDs)
	}
}
