// Package engine drives a statement period through its lifecycle: import,
// suggestion, review and commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/Veraticus/bankcat/internal/service"
)

// ErrInvalidLine is returned when an imported statement line is unusable.
var ErrInvalidLine = errors.New("invalid statement line")

// Lifecycle orchestrates draft rows for one store.
type Lifecycle struct {
	storage       service.Storage
	suggester     *classification.Suggester
	learner       Learner
	workers       int
	requireReview bool
}

// Config holds configuration options for the lifecycle.
type Config struct {
	Workers       int
	RequireReview bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:       runtime.NumCPU(),
		RequireReview: false,
	}
}

// New creates a lifecycle with the default configuration. A nil suggester
// uses the default rule table; a nil learner disables learning.
func New(storage service.Storage, suggester *classification.Suggester, learner Learner) *Lifecycle {
	return NewWithConfig(storage, suggester, learner, DefaultConfig())
}

// NewWithConfig creates a lifecycle with custom configuration.
func NewWithConfig(storage service.Storage, suggester *classification.Suggester, learner Learner, config Config) *Lifecycle {
	if suggester == nil {
		suggester = classification.NewSuggester(nil)
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	return &Lifecycle{
		storage:       storage,
		suggester:     suggester,
		learner:       learner,
		workers:       workers,
		requireReview: config.RequireReview,
	}
}

// ImportResult describes one import batch.
type ImportResult struct {
	ImportID   string
	Inserted   int
	Duplicates int
	Replaced   bool
}

// Import stores statement lines as draft rows for the scope. With replace the
// period's existing drafts are dropped first; without it each line matching an
// already drafted line of the period is skipped, copy for copy.
func (l *Lifecycle) Import(ctx context.Context, scope model.PeriodScope, lines []model.StatementLine, replace bool) (*ImportResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	for i := range lines {
		if err := validateLine(&lines[i]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	result := &ImportResult{ImportID: uuid.NewString(), Replaced: replace}

	toInsert := lines
	if !replace {
		existing, err := l.storage.ListDrafts(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing drafts: %w", err)
		}
		// Identical lines are legitimate (two equal withdrawals on one day), so
		// each drafted copy absorbs at most one incoming copy.
		drafted := make(map[string]int, len(existing))
		for i := range existing {
			line := existing[i].Line()
			drafted[line.Fingerprint()]++
		}
		toInsert = make([]model.StatementLine, 0, len(lines))
		for i := range lines {
			fp := lines[i].Fingerprint()
			if drafted[fp] > 0 {
				drafted[fp]--
				result.Duplicates++
				continue
			}
			toInsert = append(toInsert, lines[i])
		}
	}

	if len(toInsert) == 0 {
		slog.Info("nothing new to import", "scope", scope.String(), "duplicates", result.Duplicates)
		return result, nil
	}

	inserted, err := l.storage.InsertDrafts(ctx, scope, result.ImportID, toInsert, replace)
	if err != nil {
		return nil, fmt.Errorf("failed to insert drafts: %w", err)
	}
	result.Inserted = inserted

	slog.Info("imported statement lines",
		"client_id", scope.ClientID,
		"bank_id", scope.BankID,
		"period", scope.Period,
		"import_id", result.ImportID,
		"rows", inserted,
		"duplicates", result.Duplicates)
	return result, nil
}

func validateLine(line *model.StatementLine) error {
	if line.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidLine)
	}
	if line.Debit.IsNegative() || line.Credit.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidLine)
	}
	return nil
}

// SaveReview records reviewer decisions. Every non-empty final category must
// name an active category of the client; an empty one clears the decision.
func (l *Lifecycle) SaveReview(ctx context.Context, scope model.PeriodScope, decisions []model.ReviewDecision) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	categories, err := l.storage.GetCategories(ctx, scope.ClientID, false)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	active := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		active[cat.Name] = struct{}{}
	}

	cleaned := make([]model.ReviewDecision, len(decisions))
	for i, d := range decisions {
		d.FinalCategory = strings.TrimSpace(d.FinalCategory)
		d.FinalVendor = strings.TrimSpace(d.FinalVendor)
		if d.FinalCategory != "" {
			if _, ok := active[d.FinalCategory]; !ok {
				return fmt.Errorf("%w: %q", common.ErrUnknownCategory, d.FinalCategory)
			}
		}
		cleaned[i] = d
	}

	if err := l.storage.SaveReview(ctx, scope, cleaned); err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// AcceptSuggestions copies the suggestion into the decision of every row that
// has no decision yet and a suggestion at or above minConfidence. It returns
// the number of rows accepted.
func (l *Lifecycle) AcceptSuggestions(ctx context.Context, scope model.PeriodScope, minConfidence float64) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	drafts, err := l.storage.ListDrafts(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to load drafts: %w", err)
	}

	var decisions []model.ReviewDecision
	for i := range drafts {
		d := &drafts[i]
		if d.IsReviewed() || d.SuggestedCategory == "" || d.Confidence < minConfidence {
			continue
		}
		decisions = append(decisions, model.ReviewDecision{
			ID:            d.ID,
			FinalCategory: d.SuggestedCategory,
			FinalVendor:   d.SuggestedVendor,
		})
	}
	if len(decisions) == 0 {
		return 0, nil
	}

	if err := l.SaveReview(ctx, scope, decisions); err != nil {
		return 0, err
	}
	slog.Info("accepted suggestions", "scope", scope.String(), "rows", len(decisions), "min_confidence", minConfidence)
	return len(decisions), nil
}

// Commit promotes the period into the committed ledger and then feeds the
// learner. A learner failure is logged and does not undo the commit.
func (l *Lifecycle) Commit(ctx context.Context, scope model.PeriodScope, committedBy, notes string) (*model.CommitRecord, []model.CommittedTransaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	record, txns, err := l.storage.CommitPeriod(ctx, scope, model.CommitRequest{
		CommittedBy:   committedBy,
		Notes:         notes,
		RequireReview: l.requireReview,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to commit %s: %w", scope, err)
	}

	slog.Info("committed period",
		"client_id", scope.ClientID,
		"bank_id", scope.BankID,
		"period", scope.Period,
		"commit_id", record.ID,
		"rows", record.RowsCommitted)

	if l.learner != nil {
		if err := l.learner.Learn(ctx, scope.ClientID, txns); err != nil {
			slog.Warn("learning update failed",
				"commit_id", record.ID,
				"error", err)
		}
	}
	return record, txns, nil
}

// State reports the lifecycle state of the period.
func (l *Lifecycle) State(ctx context.Context, scope model.PeriodScope) (model.PeriodState, error) {
	if err := scope.Validate(); err != nil {
		return model.PeriodEmpty, err
	}
	drafts, err := l.storage.ListDrafts(ctx, scope)
	if err != nil {
		return model.PeriodEmpty, fmt.Errorf("failed to load drafts: %w", err)
	}
	commits, err := l.storage.CountCommits(ctx, scope)
	if err != nil {
		return model.PeriodEmpty, fmt.Errorf("failed to count commits: %w", err)
	}
	return model.DerivePeriodState(drafts, commits), nil
}
