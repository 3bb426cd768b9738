package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Client, bank and category masters",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS clients (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					industry TEXT NOT NULL DEFAULT '',
					country TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS banks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					account_masked TEXT NOT NULL DEFAULT '',
					account_type TEXT NOT NULL DEFAULT '',
					currency TEXT NOT NULL DEFAULT '',
					opening_balance TEXT,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (client_id, name, account_masked)
				)`,
				`CREATE INDEX idx_banks_client ON banks(client_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					code TEXT NOT NULL DEFAULT '',
					name TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('Income', 'Expense', 'Other')),
					nature TEXT NOT NULL DEFAULT 'Any' CHECK (nature IN ('Dr', 'Cr', 'Any')),
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (client_id, name)
				)`,
				`CREATE INDEX idx_categories_client_active ON categories(client_id, is_active)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Vendor memory and keyword weights",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS vendor_memory (
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					vendor_key TEXT NOT NULL,
					category TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0.5,
					times_confirmed INTEGER NOT NULL DEFAULT 0,
					last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, vendor_key)
				)`,

				`CREATE TABLE IF NOT EXISTS keyword_weights (
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					token TEXT NOT NULL,
					category TEXT NOT NULL,
					weight REAL NOT NULL DEFAULT 0,
					times_used INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, token, category)
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Draft lifecycle and commit ledger",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS draft_transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					bank_id INTEGER NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
					period TEXT NOT NULL,
					import_id TEXT NOT NULL DEFAULT '',
					tx_date DATETIME NOT NULL,
					description TEXT NOT NULL,
					debit TEXT NOT NULL DEFAULT '0',
					credit TEXT NOT NULL DEFAULT '0',
					balance TEXT,
					fingerprint TEXT NOT NULL DEFAULT '',
					suggested_category TEXT NOT NULL DEFAULT '',
					suggested_vendor TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					reason TEXT NOT NULL DEFAULT '',
					final_category TEXT NOT NULL DEFAULT '',
					final_vendor TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'Draft',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_drafts_scope ON draft_transactions(client_id, bank_id, period)`,

				`CREATE TABLE IF NOT EXISTS commits (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					bank_id INTEGER NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
					period TEXT NOT NULL,
					committed_by TEXT NOT NULL DEFAULT '',
					committed_at DATETIME NOT NULL,
					rows_committed INTEGER NOT NULL,
					accuracy REAL,
					notes TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_commits_scope ON commits(client_id, bank_id, period)`,

				`CREATE TABLE IF NOT EXISTS committed_transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					commit_id INTEGER NOT NULL REFERENCES commits(id) ON DELETE CASCADE,
					client_id INTEGER NOT NULL,
					bank_id INTEGER NOT NULL,
					period TEXT NOT NULL,
					tx_date DATETIME NOT NULL,
					description TEXT NOT NULL,
					debit TEXT NOT NULL DEFAULT '0',
					credit TEXT NOT NULL DEFAULT '0',
					balance TEXT,
					category TEXT NOT NULL,
					vendor TEXT NOT NULL DEFAULT '',
					suggested_category TEXT NOT NULL DEFAULT '',
					suggested_vendor TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					reason TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_committed_commit ON committed_transactions(commit_id)`,
				`CREATE INDEX idx_committed_scope ON committed_transactions(client_id, bank_id, period)`,
			)
		},
	},
	{
		Version:     4,
		Description: "Track reviewer decisions on committed rows",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE committed_transactions ADD COLUMN reviewed INTEGER NOT NULL DEFAULT 1`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
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

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
