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
)

const categoryColumns = `id, client_id, code, name, type, nature, is_active, created_at`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.ClientID, &c.Code, &c.Name, &c.Type, &c.Nature, &c.IsActive, &c.CreatedAt)
	return c, err
}

// GetCategories returns a client's categories in master order (code, then
// creation). Inactive categories are included only when requested.
func (s *SQLiteStorage) GetCategories(ctx context.Context, clientID int64, includeInactive bool) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db, clientID, includeInactive)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable, clientID int64, includeInactive bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE client_id = ?`
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY code, id`

	rows, err := q.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "client_id", clientID, "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns a client's category by exact name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, clientID int64, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE client_id = ? AND name = ?`, clientID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &c, nil
}

// CreateCategory creates a category for a client. Creating a category whose
// name already exists but is inactive reactivates it with the new attributes.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, cat *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(cat); err != nil {
		return err
	}
	cat.Name = strings.TrimSpace(cat.Name)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanCategory(tx.QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM categories WHERE client_id = ? AND name = ?`, cat.ClientID, cat.Name))
		switch {
		case err == nil && existing.IsActive:
			return fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, cat.Name)
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE categories SET code = ?, type = ?, nature = ?, is_active = 1 WHERE id = ?
			`, cat.Code, cat.Type, cat.Nature, existing.ID); err != nil {
				return fmt.Errorf("failed to reactivate category: %w", err)
			}
			cat.ID = existing.ID
			cat.CreatedAt = existing.CreatedAt
			cat.IsActive = true
			slog.Info("reactivated existing category", "name", cat.Name, "client_id", cat.ClientID)
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check existing category: %w", err)
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO categories (client_id, code, name, type, nature, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, 1, ?)
		`, cat.ClientID, cat.Code, cat.Name, cat.Type, cat.Nature, now)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: client %d", common.ErrNotFound, cat.ClientID)
			}
			return fmt.Errorf("failed to create category: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category ID: %w", err)
		}

		cat.ID = id
		cat.CreatedAt = now
		cat.IsActive = true
		slog.Info("created new category", "name", cat.Name, "client_id", cat.ClientID, "id", id)
		return nil
	})
}

// SetCategoryActive activates or deactivates a category. Categories are never
// deleted because committed rows reference them by name.
func (s *SQLiteStorage) SetCategoryActive(ctx context.Context, clientID int64, name string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET is_active = ? WHERE client_id = ? AND name = ?`, active, clientID, name)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: category %q", common.ErrNotFound, name)
	}

	slog.Info("updated category status", "name", name, "client_id", clientID, "active", active)
	return nil
}
