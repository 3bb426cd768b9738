package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// draftPeriod imports the test lines and suggests a category for each.
func draftPeriod(t *testing.T, f fixture, period string) []model.DraftTransaction {
	t.Helper()
	ctx := context.Background()
	scope := f.scope(period)

	_, err := f.store.InsertDrafts(ctx, scope, "import", testLines(), false)
	require.NoError(t, err)

	drafts, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)

	suggested := []string{"Sales", "Travel Expenses", "Bank Charges"}
	updates := make([]model.SuggestionUpdate, len(drafts))
	for i, d := range drafts {
		updates[i] = model.SuggestionUpdate{ID: d.ID, Category: suggested[i], Vendor: "Vendor", Confidence: 0.8, Reason: "test"}
	}
	require.NoError(t, f.store.UpdateSuggestions(ctx, scope, updates))

	drafts, err = f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	return drafts
}

func TestCommitPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")
	drafts := draftPeriod(t, f, "2025-10")

	require.NoError(t, f.store.SaveReview(ctx, scope, []model.ReviewDecision{
		{ID: drafts[0].ID, FinalCategory: "Sales", FinalVendor: "Customer"},
		{ID: drafts[1].ID, FinalCategory: "Travel Expenses", FinalVendor: "Uber"},
		{ID: drafts[2].ID, FinalCategory: "Bank Charges Override"},
	}))

	record, committed, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{
		CommittedBy:   "reviewer@example.com",
		Notes:         "October close",
		RequireReview: true,
	})
	require.NoError(t, err)

	assert.NotZero(t, record.ID)
	assert.Equal(t, 3, record.RowsCommitted)
	assert.Equal(t, "reviewer@example.com", record.CommittedBy)
	require.NotNil(t, record.Accuracy)
	assert.InDelta(t, 2.0/3.0, *record.Accuracy, 1e-9)
	require.Len(t, committed, 3)

	remaining, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	stored, err := f.store.GetCommittedTransactions(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, stored, record.RowsCommitted)

	override := stored[2]
	assert.Equal(t, "Bank Charges Override", override.Category)
	assert.Equal(t, "Bank Charges", override.SuggestedCategory)
	assert.Equal(t, "Vendor", override.SuggestedVendor)
	assert.InDelta(t, 0.8, override.Confidence, 1e-9)
	assert.Equal(t, record.ID, override.CommitID)
	assert.True(t, override.Reviewed)

	got, err := f.store.GetCommit(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "October close", got.Notes)
	require.NotNil(t, got.Accuracy)
	assert.InDelta(t, *record.Accuracy, *got.Accuracy, 1e-9)

	n, err := f.store.CountCommits(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCommitPeriodRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	_, _, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	assert.ErrorIs(t, err, common.ErrNothingToCommit)

	drafts := draftPeriod(t, f, "2025-10")
	require.NoError(t, f.store.SaveReview(ctx, scope, []model.ReviewDecision{
		{ID: drafts[0].ID, FinalCategory: "Sales"},
	}))

	_, _, err = f.store.CommitPeriod(ctx, scope, model.CommitRequest{RequireReview: true})
	assert.ErrorIs(t, err, common.ErrUnreviewedRows)

	// Nothing was partially committed.
	remaining, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
	commits, err := f.store.ListCommits(ctx, f.client.ID, f.bank.ID, "2025-10")
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestCommitPeriodFallsBackToSuggestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")
	drafts := draftPeriod(t, f, "2025-10")

	require.NoError(t, f.store.SaveReview(ctx, scope, []model.ReviewDecision{
		{ID: drafts[0].ID, FinalCategory: "Travel Expenses"},
	}))

	record, committed, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	require.NoError(t, err)
	require.Len(t, committed, 3)

	assert.Equal(t, "Travel Expenses", committed[0].Category)
	assert.True(t, committed[0].Reviewed)
	assert.Equal(t, "Travel Expenses", committed[1].Category)
	assert.Equal(t, "Vendor", committed[1].Vendor)
	assert.False(t, committed[1].Reviewed)
	assert.False(t, committed[2].Reviewed)

	// Only the one reviewed row counts, and it overrode its suggestion.
	require.NotNil(t, record.Accuracy)
	assert.InDelta(t, 0.0, *record.Accuracy, 1e-9)

	stored, err := f.store.GetCommittedTransactions(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.True(t, stored[0].Reviewed)
	assert.False(t, stored[1].Reviewed)
}

func TestCommitPeriodWithoutReviewHasNoAccuracy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")
	draftPeriod(t, f, "2025-10")

	record, committed, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, record.RowsCommitted)
	assert.Nil(t, record.Accuracy)
	for _, c := range committed {
		assert.False(t, c.Reviewed)
	}

	got, err := f.store.GetCommit(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Accuracy)
}

func TestCommitPeriodRollsBackOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")
	drafts := draftPeriod(t, f, "2025-10")

	// The commit record is written first; the ledger insert then aborts.
	_, err := f.store.db.ExecContext(ctx, `
		CREATE TRIGGER fail_ledger BEFORE INSERT ON committed_transactions
		BEGIN
			SELECT RAISE(ABORT, 'ledger unavailable');
		END
	`)
	require.NoError(t, err)

	_, _, err = f.store.CommitPeriod(ctx, scope, model.CommitRequest{CommittedBy: "reviewer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")

	commits, err := f.store.ListCommits(ctx, f.client.ID, f.bank.ID, "2025-10")
	require.NoError(t, err)
	assert.Empty(t, commits)

	remaining, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	require.Len(t, remaining, len(drafts))
	for i := range drafts {
		assert.Equal(t, drafts[i].ID, remaining[i].ID)
		assert.Equal(t, drafts[i].SuggestedCategory, remaining[i].SuggestedCategory)
	}

	n, err := f.store.CountCommits(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommitPeriodRejectsRowsWithoutAnyCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	_, err := f.store.InsertDrafts(ctx, scope, "", testLines(), false)
	require.NoError(t, err)

	_, _, err = f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	assert.ErrorIs(t, err, common.ErrUnreviewedRows)
}

func TestReimportAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")
	draftPeriod(t, f, "2025-10")

	first, _, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	require.NoError(t, err)

	// A fresh cycle for the same period leaves the first commit untouched.
	draftPeriod(t, f, "2025-10")
	second, _, err := f.store.CommitPeriod(ctx, scope, model.CommitRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	firstRows, err := f.store.GetCommittedTransactions(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, firstRows, 3)

	secondRows, err := f.store.GetCommittedTransactions(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, secondRows, 3)

	commits, err := f.store.ListCommits(ctx, f.client.ID, 0, "")
	require.NoError(t, err)
	assert.Len(t, commits, 2)

	_, err = f.store.GetCommit(ctx, 4040)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
