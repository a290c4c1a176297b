package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS messages (
					id TEXT PRIMARY KEY,
					subject TEXT NOT NULL DEFAULT '',
					body TEXT NOT NULL DEFAULT '',
					snippet TEXT NOT NULL DEFAULT '',
					from_name TEXT NOT NULL DEFAULT '',
					from_address TEXT NOT NULL,
					to_addresses TEXT NOT NULL DEFAULT '[]',
					timestamp DATETIME NOT NULL,
					is_read BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_messages_timestamp ON messages(timestamp)`,

				`CREATE TABLE IF NOT EXISTS classifications (
					message_id TEXT NOT NULL,
					rule_version TEXT NOT NULL,
					category TEXT NOT NULL,
					score INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					classified_at DATETIME NOT NULL,
					PRIMARY KEY (message_id, rule_version),
					FOREIGN KEY (message_id) REFERENCES messages(id)
				)`,
				`CREATE INDEX idx_classifications_category ON classifications(rule_version, category)`,

				`CREATE TABLE IF NOT EXISTS bills (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					provider TEXT NOT NULL,
					account_suffix TEXT NOT NULL DEFAULT '',
					amount REAL NOT NULL DEFAULT 0,
					due_date DATETIME NOT NULL,
					category TEXT NOT NULL DEFAULT 'other',
					priority TEXT NOT NULL DEFAULT 'normal',
					status TEXT NOT NULL DEFAULT 'pending',
					payment_link TEXT NOT NULL DEFAULT '',
					confirmed_by TEXT NOT NULL DEFAULT '',
					source_message_ids TEXT NOT NULL DEFAULT '[]',
					low_confidence_key BOOLEAN NOT NULL DEFAULT 0,
					last_updated DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_bills_status ON bills(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add shadow tables for reclassification",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classifications_shadow (
					message_id TEXT NOT NULL,
					rule_version TEXT NOT NULL,
					category TEXT NOT NULL,
					score INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					classified_at DATETIME NOT NULL,
					PRIMARY KEY (message_id, rule_version)
				)`,
				`CREATE TABLE IF NOT EXISTS bills_shadow (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					provider TEXT NOT NULL,
					account_suffix TEXT NOT NULL DEFAULT '',
					amount REAL NOT NULL DEFAULT 0,
					due_date DATETIME NOT NULL,
					category TEXT NOT NULL DEFAULT 'other',
					priority TEXT NOT NULL DEFAULT 'normal',
					status TEXT NOT NULL DEFAULT 'pending',
					payment_link TEXT NOT NULL DEFAULT '',
					confirmed_by TEXT NOT NULL DEFAULT '',
					source_message_ids TEXT NOT NULL DEFAULT '[]',
					low_confidence_key BOOLEAN NOT NULL DEFAULT 0,
					last_updated DATETIME NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index bills by provider for merge lookups",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_bills_provider ON bills(provider)`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
