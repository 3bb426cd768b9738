package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/mattn/go-sqlite3"
)

// CreateClient creates a new client.
func (s *SQLiteStorage) CreateClient(ctx context.Context, client *model.Client) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("%w: client", ErrEmptyString)
	}
	if err := validateString(client.Name, "name"); err != nil {
		return err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (name, industry, country, description, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, strings.TrimSpace(client.Name), client.Industry, client.Country, client.Description, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: client %q", common.ErrDuplicateEntry, client.Name)
		}
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get client ID: %w", err)
	}

	client.ID = id
	client.CreatedAt = now
	client.IsActive = true

	slog.Info("created client", "name", client.Name, "client_id", id)
	return nil
}

// GetClient returns a client by ID.
func (s *SQLiteStorage) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var c model.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, industry, country, description, is_active, created_at
		FROM clients WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Industry, &c.Country, &c.Description, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// ListClients returns all clients ordered by name.
func (s *SQLiteStorage) ListClients(ctx context.Context) ([]model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, industry, country, description, is_active, created_at
		FROM clients ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.Country, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

// CreateBank registers a bank account for a client.
func (s *SQLiteStorage) CreateBank(ctx context.Context, bank *model.Bank) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBank(bank); err != nil {
		return err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO banks (client_id, name, account_masked, account_type, currency, opening_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, bank.ClientID, strings.TrimSpace(bank.Name), bank.AccountMasked, bank.AccountType, bank.Currency, bank.OpeningBalance, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: bank %q", common.ErrDuplicateEntry, bank.Name)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client %d", common.ErrNotFound, bank.ClientID)
		}
		return fmt.Errorf("failed to create bank: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get bank ID: %w", err)
	}

	bank.ID = id
	bank.CreatedAt = now
	bank.IsActive = true

	slog.Info("created bank", "name", bank.Name, "bank_id", id, "client_id", bank.ClientID)
	return nil
}

const bankColumns = `id, client_id, name, account_masked, account_type, currency, opening_balance, is_active, created_at`

func scanBank(row interface{ Scan(...any) error }) (model.Bank, error) {
	var b model.Bank
	err := row.Scan(&b.ID, &b.ClientID, &b.Name, &b.AccountMasked, &b.AccountType, &b.Currency,
		&b.OpeningBalance, &b.IsActive, &b.CreatedAt)
	return b, err
}

// GetBank returns a bank by ID.
func (s *SQLiteStorage) GetBank(ctx context.Context, id int64) (*model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	b, err := scanBank(s.db.QueryRowContext(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bank %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	return &b, nil
}

// ListBanks returns the banks registered for a client.
func (s *SQLiteStorage) ListBanks(ctx context.Context, clientID int64) ([]model.Bank, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+bankColumns+` FROM banks WHERE client_id = ? ORDER BY name, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query banks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var banks []model.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		banks = append(banks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banks: %w", err)
	}
	return banks, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
