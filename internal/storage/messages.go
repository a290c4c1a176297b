package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mailmind/mailmind/internal/model"
)

const messageColumns = `id, subject, body, snippet, from_name, from_address, to_addresses, timestamp, is_read`

// SaveMessages stores a batch of messages. Messages are immutable: an ID
// that already exists is skipped, so redelivery from the mail feed is safe.
func (s *SQLiteStorage) SaveMessages(ctx context.Context, messages []model.Message) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMessages(messages); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range messages {
		msg := &messages[i]

		toJSON, err := json.Marshal(msg.To)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to encode recipients for %s: %w", msg.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			msg.ID, msg.Subject, msg.Body, msg.Snippet,
			msg.From.Name, msg.From.Address, string(toJSON),
			msg.Timestamp, msg.Read,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	return nil
}

// GetMessageByID returns one message, or nil when no such ID exists.
func (s *SQLiteStorage) GetMessageByID(ctx context.Context, id string) (*model.Message, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = ?
	`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}

// GetAllMessages returns every stored message, oldest first.
func (s *SQLiteStorage) GetAllMessages(ctx context.Context) ([]model.Message, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages ORDER BY timestamp, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

// GetUnclassifiedMessages returns the messages with no cached classification
// under the given rule-set version, oldest first.
func (s *SQLiteStorage) GetUnclassifiedMessages(ctx context.Context, ruleVersion string) ([]model.Message, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ruleVersion, "ruleVersion"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.subject, m.body, m.snippet, m.from_name, m.from_address,
		       m.to_addresses, m.timestamp, m.is_read
		FROM messages m
		LEFT JOIN %s c ON c.message_id = m.id AND c.rule_version = ?
		WHERE c.message_id IS NULL
		ORDER BY m.timestamp, m.id
	`, s.classificationsTable())

	rows, err := s.db.QueryContext(ctx, query, ruleVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		msg    model.Message
		toJSON string
	)
	err := row.Scan(
		&msg.ID, &msg.Subject, &msg.Body, &msg.Snippet,
		&msg.From.Name, &msg.From.Address, &toJSON,
		&msg.Timestamp, &msg.Read,
	)
	if err != nil {
		return nil, err
	}

	if toJSON != "" {
		if err := json.Unmarshal([]byte(toJSON), &msg.To); err != nil {
			return nil, fmt.Errorf("failed to decode recipients for %s: %w", msg.ID, err)
		}
	}
	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
