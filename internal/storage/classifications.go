package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mailmind/mailmind/internal/model"
)

// SaveClassification upserts the cached classification for one message
// under its rule-set version.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, cm *model.ClassifiedMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(cm); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (message_id, rule_version, category, score, source, classified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id, rule_version) DO UPDATE SET
			category = excluded.category,
			score = excluded.score,
			source = excluded.source,
			classified_at = excluded.classified_at
	`, s.classificationsTable())

	_, err := s.db.ExecContext(ctx, query,
		cm.Message.ID, cm.RuleVersion, string(cm.Category),
		cm.Score, string(cm.Source), cm.ClassifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification for %s: %w", cm.Message.ID, err)
	}
	return nil
}

// GetClassification returns the cached classification for the message under
// the given rule-set version, or nil when the cache has no entry.
func (s *SQLiteStorage) GetClassification(ctx context.Context, messageID, ruleVersion string) (*model.ClassifiedMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}
	if err := validateString(ruleVersion, "ruleVersion"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.subject, m.body, m.snippet, m.from_name, m.from_address,
		       m.to_addresses, m.timestamp, m.is_read,
		       c.category, c.score, c.source, c.rule_version, c.classified_at
		FROM %s c
		JOIN messages m ON m.id = c.message_id
		WHERE c.message_id = ? AND c.rule_version = ?
	`, s.classificationsTable())

	row := s.db.QueryRowContext(ctx, query, messageID, ruleVersion)

	cm, err := scanClassification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification for %s: %w", messageID, err)
	}
	return cm, nil
}

// GetClassificationsByCategory returns all cached classifications with the
// given category under one rule-set version, oldest message first.
func (s *SQLiteStorage) GetClassificationsByCategory(ctx context.Context, ruleVersion string, category model.Category) ([]model.ClassifiedMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ruleVersion, "ruleVersion"); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidClassification, category)
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.subject, m.body, m.snippet, m.from_name, m.from_address,
		       m.to_addresses, m.timestamp, m.is_read,
		       c.category, c.score, c.source, c.rule_version, c.classified_at
		FROM %s c
		JOIN messages m ON m.id = c.message_id
		WHERE c.rule_version = ? AND c.category = ?
		ORDER BY m.timestamp, m.id
	`, s.classificationsTable())

	rows, err := s.db.QueryContext(ctx, query, ruleVersion, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClassifiedMessage
	for rows.Next() {
		cm, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		out = append(out, *cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classifications: %w", err)
	}
	return out, nil
}

func scanClassification(row rowScanner) (*model.ClassifiedMessage, error) {
	var (
		cm       model.ClassifiedMessage
		toJSON   string
		category string
		source   string
	)
	err := row.Scan(
		&cm.Message.ID, &cm.Message.Subject, &cm.Message.Body, &cm.Message.Snippet,
		&cm.Message.From.Name, &cm.Message.From.Address, &toJSON,
		&cm.Message.Timestamp, &cm.Message.Read,
		&category, &cm.Score, &source, &cm.RuleVersion, &cm.ClassifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if toJSON != "" {
		if err := json.Unmarshal([]byte(toJSON), &cm.Message.To); err != nil {
			return nil, fmt.Errorf("failed to decode recipients for %s: %w", cm.Message.ID, err)
		}
	}
	cm.Category = model.Category(category)
	cm.Source = model.ConfidenceSource(source)
	return &cm, nil
}
