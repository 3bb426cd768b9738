package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/bankcat/internal/model"
)

const draftColumns = `id, client_id, bank_id, period, import_id, tx_date, description, debit, credit, balance,
	suggested_category, suggested_vendor, confidence, reason, final_category, final_vendor, status, created_at`

func scanDraft(row interface{ Scan(...any) error }) (model.DraftTransaction, error) {
	var d model.DraftTransaction
	err := row.Scan(&d.ID, &d.ClientID, &d.BankID, &d.Period, &d.ImportID, &d.Date, &d.Description,
		&d.Debit, &d.Credit, &d.Balance,
		&d.SuggestedCategory, &d.SuggestedVendor, &d.Confidence, &d.Reason,
		&d.FinalCategory, &d.FinalVendor, &d.Status, &d.CreatedAt)
	return d, err
}

// InsertDrafts stores statement lines as draft rows of a period in one
// transaction. With replace set the period's existing draft rows are deleted
// first, inside the same transaction. Lines are stored as given; validating
// them is the caller's job.
func (s *SQLiteStorage) InsertDrafts(ctx context.Context, scope model.PeriodScope, importID string, lines []model.StatementLine, replace bool) (int, error) {
	if err := validateScope(ctx, scope); err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: lines", ErrEmptySlice)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if replace {
			if _, err := deletePeriodTx(ctx, tx, scope); err != nil {
				return err
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO draft_transactions (
				client_id, bank_id, period, import_id, tx_date, description,
				debit, credit, balance, fingerprint, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for i := range lines {
			line := &lines[i]
			if _, err := stmt.ExecContext(ctx,
				scope.ClientID, scope.BankID, scope.Period, importID,
				line.Date, line.Description,
				line.Debit, line.Credit, line.Balance,
				line.Fingerprint(), model.StatusDraft, now,
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("unknown client or bank for %s: %w", scope, err)
				}
				return fmt.Errorf("failed to insert draft row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("inserted draft rows",
		"client_id", scope.ClientID,
		"bank_id", scope.BankID,
		"period", scope.Period,
		"rows", len(lines),
		"replace", replace)
	return len(lines), nil
}

// ListDrafts returns the draft rows of a period in statement order.
func (s *SQLiteStorage) ListDrafts(ctx context.Context, scope model.PeriodScope) ([]model.DraftTransaction, error) {
	if err := validateScope(ctx, scope); err != nil {
		return nil, err
	}
	return listDraftsTx(ctx, s.db, scope)
}

func listDraftsTx(ctx context.Context, q queryable, scope model.PeriodScope) ([]model.DraftTransaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+draftColumns+`
		FROM draft_transactions
		WHERE client_id = ? AND bank_id = ? AND period = ?
		ORDER BY tx_date, id
	`, scope.ClientID, scope.BankID, scope.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var drafts []model.DraftTransaction
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draft rows: %w", err)
	}
	return drafts, nil
}

// UpdateSuggestions overwrites the suggested_* fields of the given rows in one
// transaction. Reviewer fields are never touched.
func (s *SQLiteStorage) UpdateSuggestions(ctx context.Context, scope model.PeriodScope, updates []model.SuggestionUpdate) error {
	if err := validateScope(ctx, scope); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE draft_transactions
			SET suggested_category = ?, suggested_vendor = ?, confidence = ?, reason = ?,
				status = CASE WHEN status = ? THEN status ELSE ? END
			WHERE id = ? AND client_id = ? AND bank_id = ? AND period = ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, u := range updates {
			result, err := stmt.ExecContext(ctx, u.Category, u.Vendor, u.Confidence, u.Reason,
				model.StatusReviewed, model.StatusSuggested,
				u.ID, scope.ClientID, scope.BankID, scope.Period)
			if err != nil {
				return fmt.Errorf("failed to update suggestion for row %d: %w", u.ID, err)
			}
			if err := requireOneRow(result, u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveReview records reviewer decisions in one transaction. Saving again
// overwrites the previous decision. An empty final category clears the
// decision and returns the row to the suggested state.
func (s *SQLiteStorage) SaveReview(ctx context.Context, scope model.PeriodScope, decisions []model.ReviewDecision) error {
	if err := validateScope(ctx, scope); err != nil {
		return err
	}
	if len(decisions) == 0 {
		return nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE draft_transactions
			SET final_category = ?, final_vendor = ?,
				status = CASE
					WHEN ? <> '' THEN ?
					WHEN suggested_category <> '' THEN ?
					ELSE ?
				END
			WHERE id = ? AND client_id = ? AND bank_id = ? AND period = ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, d := range decisions {
			result, err := stmt.ExecContext(ctx, d.FinalCategory, d.FinalVendor,
				d.FinalCategory, model.StatusReviewed, model.StatusSuggested, model.StatusDraft,
				d.ID, scope.ClientID, scope.BankID, scope.Period)
			if err != nil {
				return fmt.Errorf("failed to save review for row %d: %w", d.ID, err)
			}
			if err := requireOneRow(result, d.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("saved review decisions", "scope", scope.String(), "rows", len(decisions))
	return nil
}

// ListPeriods summarizes the draft periods held for a client's bank.
func (s *SQLiteStorage) ListPeriods(ctx context.Context, clientID, bankID int64) ([]model.PeriodSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT period,
			COUNT(*),
			SUM(CASE WHEN final_category <> '' THEN 1 ELSE 0 END),
			MIN(tx_date),
			MAX(tx_date)
		FROM draft_transactions
		WHERE client_id = ? AND bank_id = ?
		GROUP BY period
		ORDER BY period
	`, clientID, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var periods []model.PeriodSummary
	for rows.Next() {
		var p model.PeriodSummary
		var first, last string
		if err := rows.Scan(&p.Period, &p.Rows, &p.Reviewed, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		p.FirstDate = parseStoredTime(first)
		p.LastDate = parseStoredTime(last)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating periods: %w", err)
	}
	return periods, nil
}

// DeletePeriod removes every draft row of a period and returns how many were
// deleted.
func (s *SQLiteStorage) DeletePeriod(ctx context.Context, scope model.PeriodScope) (int, error) {
	if err := validateScope(ctx, scope); err != nil {
		return 0, err
	}

	var deleted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := deletePeriodTx(ctx, tx, scope)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.Info("deleted draft period", "scope", scope.String(), "rows", deleted)
	return deleted, nil
}

func deletePeriodTx(ctx context.Context, q queryable, scope model.PeriodScope) (int, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM draft_transactions WHERE client_id = ? AND bank_id = ? AND period = ?
	`, scope.ClientID, scope.BankID, scope.Period)
	if err != nil {
		return 0, fmt.Errorf("failed to delete draft rows: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func requireOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: draft row %d not in scope", ErrInvalidID, id)
	}
	return nil
}

// storedTimeLayouts are the layouts go-sqlite3 writes time.Time values in.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseStoredTime parses aggregate results, which lose the column type and
// come back as text.
func parseStoredTime(s string) time.Time {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
