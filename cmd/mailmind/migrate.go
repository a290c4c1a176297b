package main

import (
	"fmt"
	"log/slog"

	"github.com/mailmind/mailmind/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required tables and
indexes for the application to function properly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			dbPath, err := databasePath()
			if err != nil {
				return err
			}

			slog.Info("Running database migrations", "database", dbPath)

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer closeStorage(store)

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Database schema is at version %d\n", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
