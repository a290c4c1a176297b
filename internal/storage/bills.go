package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mailmind/mailmind/internal/model"
)

const billColumns = `id, name, provider, account_suffix, amount, due_date, category,
	priority, status, payment_link, confirmed_by, source_message_ids,
	low_confidence_key, last_updated`

// SaveBill upserts a bill keyed by its merge key.
func (s *SQLiteStorage) SaveBill(ctx context.Context, bill *model.Bill) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBill(bill); err != nil {
		return err
	}

	sourcesJSON, err := json.Marshal(bill.SourceMessageIDs)
	if err != nil {
		return fmt.Errorf("failed to encode sources for %s: %w", bill.ID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (`+billColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			account_suffix = excluded.account_suffix,
			amount = excluded.amount,
			due_date = excluded.due_date,
			category = excluded.category,
			priority = excluded.priority,
			status = excluded.status,
			payment_link = excluded.payment_link,
			confirmed_by = excluded.confirmed_by,
			source_message_ids = excluded.source_message_ids,
			low_confidence_key = excluded.low_confidence_key,
			last_updated = excluded.last_updated
	`, s.billsTable())

	_, err = s.db.ExecContext(ctx, query,
		bill.ID, bill.Name, bill.Provider, bill.AccountSuffix,
		bill.Amount, bill.DueDate, string(bill.Category),
		string(bill.Priority), string(bill.Status), bill.PaymentLink,
		bill.ConfirmedBy, string(sourcesJSON), bill.LowConfidenceKey,
		bill.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save bill %s: %w", bill.ID, err)
	}
	return nil
}

// GetBillByID returns one bill by merge key, or nil when no such bill
// exists.
func (s *SQLiteStorage) GetBillByID(ctx context.Context, id string) (*model.Bill, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT `+billColumns+` FROM %s WHERE id = ?`, s.billsTable())
	row := s.db.QueryRowContext(ctx, query, id)

	bill, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %s: %w", id, err)
	}
	return bill, nil
}

// GetAllBills returns every bill, soonest due date first.
func (s *SQLiteStorage) GetAllBills(ctx context.Context) ([]model.Bill, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT `+billColumns+` FROM %s ORDER BY due_date, id`, s.billsTable())
	return s.queryBills(ctx, query)
}

// GetActiveBills returns the bills that are neither paid nor dismissed,
// soonest due date first.
func (s *SQLiteStorage) GetActiveBills(ctx context.Context) ([]model.Bill, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT `+billColumns+` FROM %s
		WHERE status NOT IN (?, ?)
		ORDER BY due_date, id
	`, s.billsTable())
	return s.queryBills(ctx, query,
		string(model.BillStatusPaid), string(model.BillStatusDismissed))
}

func (s *SQLiteStorage) queryBills(ctx context.Context, query string, args ...any) ([]model.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bills []model.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

func scanBill(row rowScanner) (*model.Bill, error) {
	var (
		bill        model.Bill
		category    string
		priority    string
		status      string
		sourcesJSON string
	)
	err := row.Scan(
		&bill.ID, &bill.Name, &bill.Provider, &bill.AccountSuffix,
		&bill.Amount, &bill.DueDate, &category, &priority, &status,
		&bill.PaymentLink, &bill.ConfirmedBy, &sourcesJSON,
		&bill.LowConfidenceKey, &bill.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &bill.SourceMessageIDs); err != nil {
			return nil, fmt.Errorf("failed to decode sources for %s: %w", bill.ID, err)
		}
	}
	bill.Category = model.BillCategory(category)
	bill.Priority = model.BillPriority(priority)
	bill.Status = model.BillStatus(status)
	return &bill, nil
}
