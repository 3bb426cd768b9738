// Package service defines the storage contracts consumed by the lifecycle
// engine and the learning updater.
package service

import (
	"context"

	"github.com/Veraticus/bankcat/internal/model"
)

// ReferenceStore reads the client master data used for suggestions.
type ReferenceStore interface {
	GetBank(ctx context.Context, id int64) (*model.Bank, error)
	GetCategories(ctx context.Context, clientID int64, includeInactive bool) ([]model.Category, error)
}

// LearningReader reads the learned signals used for suggestions.
type LearningReader interface {
	ListVendorMemory(ctx context.Context, clientID int64) ([]model.VendorMemoryEntry, error)
	ListKeywordWeights(ctx context.Context, clientID int64) ([]model.KeywordWeight, error)
}

// LearningStore reads and reinforces the learned signals.
type LearningStore interface {
	LearningReader
	ApplyLearning(ctx context.Context, batch model.LearningBatch) error
}

// DraftStore holds the not-yet-committed rows of each period. Every bulk
// method applies fully or not at all.
type DraftStore interface {
	InsertDrafts(ctx context.Context, scope model.PeriodScope, importID string, lines []model.StatementLine, replace bool) (int, error)
	ListDrafts(ctx context.Context, scope model.PeriodScope) ([]model.DraftTransaction, error)
	UpdateSuggestions(ctx context.Context, scope model.PeriodScope, updates []model.SuggestionUpdate) error
	SaveReview(ctx context.Context, scope model.PeriodScope, decisions []model.ReviewDecision) error
	ListPeriods(ctx context.Context, clientID, bankID int64) ([]model.PeriodSummary, error)
	DeletePeriod(ctx context.Context, scope model.PeriodScope) (int, error)
}

// CommitStore promotes a period into the committed ledger.
type CommitStore interface {
	CommitPeriod(ctx context.Context, scope model.PeriodScope, req model.CommitRequest) (*model.CommitRecord, []model.CommittedTransaction, error)
	CountCommits(ctx context.Context, scope model.PeriodScope) (int, error)
}

// Storage is everything the lifecycle engine needs from persistence.
type Storage interface {
	ReferenceStore
	LearningReader
	DraftStore
	CommitStore
}
