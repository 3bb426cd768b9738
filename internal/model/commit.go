package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CommitRecord is the append-only audit record of one period commit.
type CommitRecord struct {
	CommittedAt   time.Time
	Accuracy      *float64
	Period        string
	CommittedBy   string
	Notes         string
	ID            int64
	ClientID      int64
	BankID        int64
	RowsCommitted int
}

// CommitRequest carries the reviewer-supplied metadata of a commit.
type CommitRequest struct {
	CommittedBy string
	Notes       string
	// RequireReview rejects the commit while any row lacks a final category.
	// When false such rows fall back to their suggested category.
	RequireReview bool
}

// CommittedTransaction is the immutable ledger copy of a draft row, keeping
// both the reviewer decision and the original machine suggestion.
type CommittedTransaction struct {
	CreatedAt         time.Time
	Date              time.Time
	Balance           decimal.NullDecimal
	Debit             decimal.Decimal
	Credit            decimal.Decimal
	Period            string
	Description       string
	Category          string
	Vendor            string
	SuggestedCategory string
	SuggestedVendor   string
	Reason            string
	ID                int64
	CommitID          int64
	ClientID          int64
	BankID            int64
	Confidence        float64
	// Reviewed is false when the category was filled in from the suggestion
	// at commit time rather than chosen by a reviewer.
	Reviewed bool
}

// SuggestionAccuracy returns the share of reviewed rows whose suggested
// category matches the reviewer's decision. Rows without a final category say
// nothing about the suggester and are skipped; nil means no row was reviewed.
func SuggestionAccuracy(drafts []DraftTransaction) *float64 {
	reviewed, matched := 0, 0
	for _, d := range drafts {
		final := strings.TrimSpace(d.FinalCategory)
		if final == "" {
			continue
		}
		reviewed++
		if suggested := strings.TrimSpace(d.SuggestedCategory); suggested != "" && strings.EqualFold(suggested, final) {
			matched++
		}
	}
	if reviewed == 0 {
		return nil
	}

	accuracy := float64(matched) / float64(reviewed)
	return &accuracy
}

// PeriodState is the lifecycle state of a (client, bank, period).
type PeriodState string

// Period states.
const (
	PeriodEmpty     PeriodState = "Empty"
	PeriodImported  PeriodState = "Imported"
	PeriodReviewed  PeriodState = "Reviewed"
	PeriodCommitted PeriodState = "Committed"
)

// DerivePeriodState computes the lifecycle state from the rows currently
// drafted and the number of commits recorded for the period. Draft rows win
// over an older commit: a re-import starts a fresh cycle.
func DerivePeriodState(drafts []DraftTransaction, commits int) PeriodState {
	if len(drafts) == 0 {
		if commits > 0 {
			return PeriodCommitted
		}
		return PeriodEmpty
	}
	for i := range drafts {
		if drafts[i].IsReviewed() {
			return PeriodReviewed
		}
	}
	return PeriodImported
}
