package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
)

// LowConfidenceThreshold marks suggestions the reviewer should look at first.
const LowConfidenceThreshold = 0.50

// RefreshSummary reports the outcome of a suggestion refresh.
type RefreshSummary struct {
	ByKind        map[model.MatchKind]int
	Rows          int
	Suggested     int
	Fallbacks     int
	LowConfidence int
}

type suggestionJob struct {
	draft *model.DraftTransaction
	index int
}

type suggestionResult struct {
	suggestion model.Suggestion
	index      int
}

// RefreshSuggestions recomputes the suggestion of every draft row in the
// period and writes them back in one bulk update. Reference data and
// learning signals are read once per call.
func (l *Lifecycle) RefreshSuggestions(ctx context.Context, scope model.PeriodScope, progress ProgressFunc) (*RefreshSummary, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	base, err := l.loadReference(ctx, scope)
	if err != nil {
		return nil, err
	}

	drafts, err := l.storage.ListDrafts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}

	summary := &RefreshSummary{ByKind: make(map[model.MatchKind]int), Rows: len(drafts)}
	if len(drafts) == 0 {
		return summary, nil
	}

	suggestions, err := l.suggestParallel(ctx, drafts, base, progress)
	if err != nil {
		return nil, err
	}

	updates := make([]model.SuggestionUpdate, len(drafts))
	for i, s := range suggestions {
		updates[i] = model.SuggestionUpdate{
			ID:         drafts[i].ID,
			Category:   s.Category,
			Vendor:     s.Vendor,
			Confidence: s.Confidence,
			Reason:     s.Reason,
		}
		summary.ByKind[s.Kind]++
		if s.HasCategory() {
			summary.Suggested++
		}
		if s.Kind == model.MatchFallback || s.Kind == model.MatchNone {
			summary.Fallbacks++
		} else if s.Confidence < LowConfidenceThreshold {
			summary.LowConfidence++
		}
	}

	if err := l.storage.UpdateSuggestions(ctx, scope, updates); err != nil {
		return nil, fmt.Errorf("failed to save suggestions: %w", err)
	}

	slog.Info("refreshed suggestions",
		"client_id", scope.ClientID,
		"bank_id", scope.BankID,
		"period", scope.Period,
		"rows", summary.Rows,
		"suggested", summary.Suggested,
		"fallbacks", summary.Fallbacks,
		"low_confidence", summary.LowConfidence)
	return summary, nil
}

// Alternatives ranks the client's categories for one draft row of the period
// and returns the best n, so a reviewer can see the runners-up.
func (l *Lifecycle) Alternatives(ctx context.Context, scope model.PeriodScope, draftID int64, n int) (model.CategoryScores, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	base, err := l.loadReference(ctx, scope)
	if err != nil {
		return nil, err
	}
	drafts, err := l.storage.ListDrafts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}
	for i := range drafts {
		if drafts[i].ID == draftID {
			return l.suggester.Rank(inputFor(base, &drafts[i]), n)
		}
	}
	return nil, fmt.Errorf("%w: draft %d in %s", common.ErrNotFound, draftID, scope)
}

// loadReference reads the bank, categories and learning signals of a scope
// into a template input.
func (l *Lifecycle) loadReference(ctx context.Context, scope model.PeriodScope) (classification.Input, error) {
	bank, err := l.storage.GetBank(ctx, scope.BankID)
	if err != nil {
		return classification.Input{}, fmt.Errorf("failed to load bank: %w", err)
	}
	if bank.ClientID != scope.ClientID {
		return classification.Input{}, fmt.Errorf("%w: bank %d does not belong to client %d", model.ErrInvalidScope, bank.ID, scope.ClientID)
	}

	// Inactive categories are filtered by the scorer.
	categories, err := l.storage.GetCategories(ctx, scope.ClientID, true)
	if err != nil {
		return classification.Input{}, fmt.Errorf("failed to load categories: %w", err)
	}
	vendors, err := l.storage.ListVendorMemory(ctx, scope.ClientID)
	if err != nil {
		return classification.Input{}, fmt.Errorf("failed to load vendor memory: %w", err)
	}
	keywords, err := l.storage.ListKeywordWeights(ctx, scope.ClientID)
	if err != nil {
		return classification.Input{}, fmt.Errorf("failed to load keyword weights: %w", err)
	}

	return classification.Input{
		AccountType:    bank.AccountType,
		Categories:     categories,
		VendorMemory:   vendors,
		KeywordWeights: keywords,
	}, nil
}

func inputFor(base classification.Input, draft *model.DraftTransaction) classification.Input {
	in := base
	in.Description = draft.Description
	in.Debit = draft.Debit
	in.Credit = draft.Credit
	return in
}

// suggestParallel scores drafts over a bounded worker pool. Results are
// returned in draft order.
func (l *Lifecycle) suggestParallel(
	ctx context.Context,
	drafts []model.DraftTransaction,
	base classification.Input,
	progress ProgressFunc,
) ([]model.Suggestion, error) {
	// Create work channel
	workChan := make(chan suggestionJob, len(drafts))
	for i := range drafts {
		workChan <- suggestionJob{index: i, draft: &drafts[i]}
	}
	close(workChan)

	resultsChan := make(chan suggestionResult, len(drafts))

	workers := l.workers
	if workers > len(drafts) {
		workers = len(drafts)
	}

	var done atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			l.suggestWorker(ctx, workerID, workChan, resultsChan, base, func() {
				if progress != nil {
					progress(int(done.Add(1)), len(drafts))
				}
			})
		}(i)
	}

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	suggestions := make([]model.Suggestion, len(drafts))
	collected := 0
	for result := range resultsChan {
		suggestions[result.index] = result.suggestion
		collected++
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("suggestion refresh interrupted: %w", err)
	}
	if collected != len(drafts) {
		return nil, fmt.Errorf("suggestion refresh incomplete: %d of %d rows", collected, len(drafts))
	}
	return suggestions, nil
}

func (l *Lifecycle) suggestWorker(
	ctx context.Context,
	workerID int,
	workChan <-chan suggestionJob,
	resultsChan chan<- suggestionResult,
	base classification.Input,
	tick func(),
) {
	for job := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s := l.suggester.SuggestOne(inputFor(base, job.draft))
		slog.Debug("scored draft row",
			"worker_id", workerID,
			"row_id", job.draft.ID,
			"category", s.Category,
			"kind", s.Kind,
			"confidence", s.Confidence)

		resultsChan <- suggestionResult{index: job.index, suggestion: s}
		tick()
	}
}
