// Package testutil provides shared test helpers: a migrated throwaway
// database and realistic message fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/mailmind/mailmind/internal/storage"
)

// SetupTestDB creates a migrated SQLite database in a temp directory. It is
// closed automatically when the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "mailmind-test.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return store
}

// BillNotice returns a realistic billing notice message.
func BillNotice(id, provider string, amount string, dueDate, sent time.Time) model.Message {
	return model.Message{
		ID:      id,
		Subject: "Your " + provider + " bill statement",
		Body: "Amount due: " + amount + " for account ending in 4821.\n" +
			"Payment due by " + dueDate.Format("2006-01-02") + ".",
		From:      model.EmailAddress{Name: provider, Address: "billing@" + provider + ".example"},
		Timestamp: sent,
	}
}

// PaymentConfirmation returns a realistic payment confirmation message from
// the same provider.
func PaymentConfirmation(id, provider string, sent time.Time) model.Message {
	return model.Message{
		ID:        id,
		Subject:   "Payment received",
		Body:      "Thank you for your payment to " + provider + ".",
		From:      model.EmailAddress{Name: provider, Address: "no-reply@" + provider + ".example"},
		Timestamp: sent,
	}
}

// PlainMessage returns an ordinary personal message with no billing signal.
func PlainMessage(id string, sent time.Time) model.Message {
	return model.Message{
		ID:        id,
		Subject:   "Weekend plans",
		Body:      "Are you free on Saturday?",
		From:      model.EmailAddress{Name: "Sam", Address: "sam@example.com"},
		Timestamp: sent,
	}
}
