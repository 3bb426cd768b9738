package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on start as well; this command exists to
prepare a database ahead of time or to inspect its schema version.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	slog.Info("Starting database migration", "database", appConfig.DatabasePath, "status_only", status)

	store, err := storage.NewSQLiteStorage(appConfig.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStore(store)

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("Database %s is at schema version %d (latest %d)",
			store.Path(), current, storage.ExpectedSchemaVersion)))
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	updated, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if updated == current {
		printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Database already at schema version %d", updated)))
		return nil
	}
	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Migrated database from version %d to %d", current, updated)))
	return nil
}
