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

// CommitPeriod promotes every draft row of a period into the committed ledger
// as a single transaction: it records one CommitRecord, copies each row's
// decision and original suggestion, and deletes the drafts. Any failure
// leaves the period exactly as it was.
//
// A row without a final category is rejected when req.RequireReview is set;
// otherwise its suggested category becomes the decision. A row with neither
// is always rejected.
func (s *SQLiteStorage) CommitPeriod(ctx context.Context, scope model.PeriodScope, req model.CommitRequest) (*model.CommitRecord, []model.CommittedTransaction, error) {
	if err := validateScope(ctx, scope); err != nil {
		return nil, nil, err
	}

	var record model.CommitRecord
	var committed []model.CommittedTransaction

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		drafts, err := listDraftsTx(ctx, tx, scope)
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return fmt.Errorf("%w: %s", common.ErrNothingToCommit, scope)
		}

		accuracy := model.SuggestionAccuracy(drafts)
		decided, err := resolveDecisions(drafts, req.RequireReview)
		if err != nil {
			return err
		}

		record = model.CommitRecord{
			ClientID:      scope.ClientID,
			BankID:        scope.BankID,
			Period:        scope.Period,
			CommittedBy:   req.CommittedBy,
			CommittedAt:   time.Now(),
			RowsCommitted: len(decided),
			Accuracy:      accuracy,
			Notes:         req.Notes,
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO commits (client_id, bank_id, period, committed_by, committed_at, rows_committed, accuracy, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, record.ClientID, record.BankID, record.Period, record.CommittedBy, record.CommittedAt,
			record.RowsCommitted, record.Accuracy, record.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert commit record: %w", err)
		}
		if record.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get commit ID: %w", err)
		}

		committed, err = insertCommittedTx(ctx, tx, record, decided)
		if err != nil {
			return err
		}

		deleted, err := deletePeriodTx(ctx, tx, scope)
		if err != nil {
			return err
		}
		if deleted != len(drafts) {
			return fmt.Errorf("draft rows changed during commit: read %d, deleted %d", len(drafts), deleted)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("committed period",
		"commit_id", record.ID,
		"client_id", record.ClientID,
		"bank_id", record.BankID,
		"period", record.Period,
		"rows", record.RowsCommitted)
	return &record, committed, nil
}

type decidedRow struct {
	model.DraftTransaction
	reviewed bool
}

// resolveDecisions fills in the final category of each row and returns the
// rows in the form they are committed in, marking which ones a reviewer
// decided.
func resolveDecisions(drafts []model.DraftTransaction, requireReview bool) ([]decidedRow, error) {
	decided := make([]decidedRow, len(drafts))
	var unreviewed int
	for i, d := range drafts {
		reviewed := strings.TrimSpace(d.FinalCategory) != ""
		if !reviewed {
			if requireReview || strings.TrimSpace(d.SuggestedCategory) == "" {
				unreviewed++
			} else {
				d.FinalCategory = d.SuggestedCategory
				if d.FinalVendor == "" {
					d.FinalVendor = d.SuggestedVendor
				}
			}
		}
		decided[i] = decidedRow{DraftTransaction: d, reviewed: reviewed}
	}
	if unreviewed > 0 {
		return nil, fmt.Errorf("%w: %d of %d rows", common.ErrUnreviewedRows, unreviewed, len(drafts))
	}
	return decided, nil
}

func insertCommittedTx(ctx context.Context, tx *sql.Tx, record model.CommitRecord, drafts []decidedRow) ([]model.CommittedTransaction, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO committed_transactions (
			commit_id, client_id, bank_id, period, tx_date, description, debit, credit, balance,
			category, vendor, suggested_category, suggested_vendor, confidence, reason, reviewed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	committed := make([]model.CommittedTransaction, 0, len(drafts))
	for _, d := range drafts {
		c := model.CommittedTransaction{
			CommitID:          record.ID,
			ClientID:          record.ClientID,
			BankID:            record.BankID,
			Period:            record.Period,
			Date:              d.Date,
			Description:       d.Description,
			Debit:             d.Debit,
			Credit:            d.Credit,
			Balance:           d.Balance,
			Category:          d.FinalCategory,
			Vendor:            d.FinalVendor,
			SuggestedCategory: d.SuggestedCategory,
			SuggestedVendor:   d.SuggestedVendor,
			Confidence:        d.Confidence,
			Reason:            d.Reason,
			Reviewed:          d.reviewed,
			CreatedAt:         record.CommittedAt,
		}
		result, err := stmt.ExecContext(ctx,
			c.CommitID, c.ClientID, c.BankID, c.Period, c.Date, c.Description, c.Debit, c.Credit, c.Balance,
			c.Category, c.Vendor, c.SuggestedCategory, c.SuggestedVendor, c.Confidence, c.Reason, c.Reviewed, c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert committed row for draft %d: %w", d.ID, err)
		}
		if c.ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to get committed row ID: %w", err)
		}
		committed = append(committed, c)
	}
	return committed, nil
}

const commitColumns = `id, client_id, bank_id, period, committed_by, committed_at, rows_committed, accuracy, notes`

func scanCommit(row interface{ Scan(...any) error }) (model.CommitRecord, error) {
	var r model.CommitRecord
	var accuracy sql.NullFloat64
	err := row.Scan(&r.ID, &r.ClientID, &r.BankID, &r.Period, &r.CommittedBy, &r.CommittedAt,
		&r.RowsCommitted, &accuracy, &r.Notes)
	if accuracy.Valid {
		r.Accuracy = &accuracy.Float64
	}
	return r, err
}

// ListCommits returns a client's commit records, newest first. A zero bankID
// or empty period matches every bank or period.
func (s *SQLiteStorage) ListCommits(ctx context.Context, clientID, bankID int64, period string) ([]model.CommitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + commitColumns + ` FROM commits WHERE client_id = ?`
	args := []any{clientID}
	if bankID > 0 {
		query += ` AND bank_id = ?`
		args = append(args, bankID)
	}
	if period != "" {
		query += ` AND period = ?`
		args = append(args, period)
	}
	query += ` ORDER BY committed_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CommitRecord
	for rows.Next() {
		r, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commits: %w", err)
	}
	return records, nil
}

// CountCommits returns how many commits exist for a period.
func (s *SQLiteStorage) CountCommits(ctx context.Context, scope model.PeriodScope) (int, error) {
	if err := validateScope(ctx, scope); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM commits WHERE client_id = ? AND bank_id = ? AND period = ?
	`, scope.ClientID, scope.BankID, scope.Period).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count commits: %w", err)
	}
	return n, nil
}

// GetCommit returns one commit record.
func (s *SQLiteStorage) GetCommit(ctx context.Context, id int64) (*model.CommitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	r, err := scanCommit(s.db.QueryRowContext(ctx, `SELECT `+commitColumns+` FROM commits WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: commit %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &r, nil
}

// GetCommittedTransactions returns the ledger rows of one commit.
func (s *SQLiteStorage) GetCommittedTransactions(ctx context.Context, commitID int64) ([]model.CommittedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, client_id, bank_id, period, tx_date, description, debit, credit, balance,
			category, vendor, suggested_category, suggested_vendor, confidence, reason, reviewed, created_at
		FROM committed_transactions
		WHERE commit_id = ?
		ORDER BY tx_date, id
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query committed rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.CommittedTransaction
	for rows.Next() {
		var c model.CommittedTransaction
		if err := rows.Scan(&c.ID, &c.CommitID, &c.ClientID, &c.BankID, &c.Period, &c.Date, &c.Description,
			&c.Debit, &c.Credit, &c.Balance, &c.Category, &c.Vendor, &c.SuggestedCategory,
			&c.SuggestedVendor, &c.Confidence, &c.Reason, &c.Reviewed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan committed row: %w", err)
		}
		txns = append(txns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating committed rows: %w", err)
	}
	return txns, nil
}
