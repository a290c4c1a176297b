// Package storage provides the SQLite persistence layer: the message store,
// the classification cache, and the bill collection.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailmind/mailmind/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements service.ShadowStorage using SQLite. The shadow
// flag routes derived-state tables (classifications, bills) at their shadow
// twins; message operations are unaffected.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	shadow bool
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// classificationsTable returns the classification table this view targets.
func (s *SQLiteStorage) classificationsTable() string {
	if s.shadow {
		return "classifications_shadow"
	}
	return "classifications"
}

// billsTable returns the bill table this view targets.
func (s *SQLiteStorage) billsTable() string {
	if s.shadow {
		return "bills_shadow"
	}
	return "bills"
}

// Shadow returns a view of this storage whose derived-state reads and
// writes target the shadow tables. The underlying connection is shared.
func (s *SQLiteStorage) Shadow() service.Storage {
	return &SQLiteStorage{
		db:     s.db,
		dbPath: s.dbPath,
		shadow: true,
	}
}

// ResetShadow clears the shadow derived-state tables.
func (s *SQLiteStorage) ResetShadow(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	for _, table := range []string{"classifications_shadow", "bills_shadow"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// PromoteShadow replaces the live derived state with the shadow copy in one
// transaction. Readers see either the old state or the new state, never a
// mix.
func (s *SQLiteStorage) PromoteShadow(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	queries := []string{
		`DELETE FROM classifications`,
		`INSERT INTO classifications SELECT * FROM classifications_shadow`,
		`DELETE FROM bills`,
		`INSERT INTO bills SELECT * FROM bills_shadow`,
		`DELETE FROM classifications_shadow`,
		`DELETE FROM bills_shadow`,
	}
	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to promote shadow state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shadow promotion: %w", err)
	}
	return nil
}
