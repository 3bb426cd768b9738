package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndListDrafts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	n, err := f.store.InsertDrafts(ctx, scope, "import-1", testLines(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	drafts, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	// Ordered by date, not insertion.
	assert.Equal(t, "Customer payment INV 1001", drafts[0].Description)
	assert.Equal(t, "POS PURCHASE UBER TRIP 123456", drafts[1].Description)
	assert.Equal(t, "Monthly service fee", drafts[2].Description)

	first := drafts[0]
	assert.Equal(t, model.StatusDraft, first.Status)
	assert.Equal(t, "import-1", first.ImportID)
	assert.Equal(t, "2025-10-01", first.Date.Format("2006-01-02"))
	assert.True(t, first.Credit.Equal(decimal.RequireFromString("1500")))
	assert.True(t, first.Debit.IsZero())
	require.True(t, first.Balance.Valid)
	assert.True(t, first.Balance.Decimal.Equal(decimal.RequireFromString("1500")))
	assert.False(t, drafts[1].Balance.Valid)
	assert.False(t, first.IsReviewed())

	other, err := f.store.ListDrafts(ctx, f.scope("2025-11"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInsertDraftsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.InsertDrafts(ctx, f.scope("2025-10"), "", nil, false)
	assert.ErrorIs(t, err, ErrEmptySlice)

	_, err = f.store.InsertDrafts(ctx, model.PeriodScope{ClientID: f.client.ID, BankID: f.bank.ID}, "", testLines(), false)
	assert.ErrorIs(t, err, model.ErrInvalidScope)

	unknownBank := model.PeriodScope{ClientID: f.client.ID, BankID: 999, Period: "2025-10"}
	_, err = f.store.InsertDrafts(ctx, unknownBank, "", testLines(), false)
	assert.Error(t, err)

	drafts, err := f.store.ListDrafts(ctx, unknownBank)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestInsertDraftsReplace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	_, err := f.store.InsertDrafts(ctx, scope, "a", testLines(), false)
	require.NoError(t, err)
	_, err = f.store.InsertDrafts(ctx, scope, "b", testLines()[:1], true)
	require.NoError(t, err)

	drafts, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "b", drafts[0].ImportID)
}

func TestUpdateSuggestionsAndReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	_, err := f.store.InsertDrafts(ctx, scope, "", testLines(), false)
	require.NoError(t, err)
	drafts, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)

	require.NoError(t, f.store.SaveReview(ctx, scope, []model.ReviewDecision{
		{ID: drafts[2].ID, FinalCategory: "Bank Charges", FinalVendor: "First Bank"},
	}))

	updates := make([]model.SuggestionUpdate, 0, len(drafts))
	for _, d := range drafts {
		updates = append(updates, model.SuggestionUpdate{ID: d.ID, Category: "Travel Expenses", Vendor: "V", Confidence: 0.8, Reason: "Rule: uber"})
	}
	require.NoError(t, f.store.UpdateSuggestions(ctx, scope, updates))

	drafts, err = f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	for _, d := range drafts {
		assert.Equal(t, "Travel Expenses", d.SuggestedCategory)
		assert.InDelta(t, 0.8, d.Confidence, 1e-9)
	}
	assert.Equal(t, model.StatusSuggested, drafts[0].Status)
	// Refreshing suggestions never touches the reviewer's decision.
	assert.Equal(t, model.StatusReviewed, drafts[2].Status)
	assert.Equal(t, "Bank Charges", drafts[2].FinalCategory)
	assert.Equal(t, "First Bank", drafts[2].FinalVendor)

	// Clearing a decision returns the row to the suggested state.
	require.NoError(t, f.store.SaveReview(ctx, scope, []model.ReviewDecision{{ID: drafts[2].ID}}))
	drafts, err = f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuggested, drafts[2].Status)
	assert.False(t, drafts[2].IsReviewed())
}

func TestBulkUpdatesAreAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.scope("2025-10")

	_, err := f.store.InsertDrafts(ctx, scope, "", testLines(), false)
	require.NoError(t, err)
	drafts, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)

	err = f.store.SaveReview(ctx, scope, []model.ReviewDecision{
		{ID: drafts[0].ID, FinalCategory: "Sales"},
		{ID: 99999, FinalCategory: "Sales"},
	})
	assert.ErrorIs(t, err, ErrInvalidID)

	err = f.store.UpdateSuggestions(ctx, f.scope("2025-10"), []model.SuggestionUpdate{
		{ID: drafts[0].ID, Category: "Sales"},
		{ID: 99999, Category: "Sales"},
	})
	assert.ErrorIs(t, err, ErrInvalidID)

	after, err := f.store.ListDrafts(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, after[0].FinalCategory)
	assert.Empty(t, after[0].SuggestedCategory)
}

func TestListAndDeletePeriods(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.InsertDrafts(ctx, f.scope("2025-10"), "", testLines(), false)
	require.NoError(t, err)
	_, err = f.store.InsertDrafts(ctx, f.scope("2025-11"), "", testLines()[:1], false)
	require.NoError(t, err)

	drafts, err := f.store.ListDrafts(ctx, f.scope("2025-10"))
	require.NoError(t, err)
	require.NoError(t, f.store.SaveReview(ctx, f.scope("2025-10"), []model.ReviewDecision{{ID: drafts[0].ID, FinalCategory: "Sales"}}))

	periods, err := f.store.ListPeriods(ctx, f.client.ID, f.bank.ID)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	assert.Equal(t, "2025-10", periods[0].Period)
	assert.Equal(t, 3, periods[0].Rows)
	assert.Equal(t, 1, periods[0].Reviewed)
	assert.Equal(t, "2025-10-01", periods[0].FirstDate.Format("2006-01-02"))
	assert.Equal(t, "2025-10-03", periods[0].LastDate.Format("2006-01-02"))
	assert.Equal(t, "2025-11", periods[1].Period)

	deleted, err := f.store.DeletePeriod(ctx, f.scope("2025-10"))
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	periods, err = f.store.ListPeriods(ctx, f.client.ID, f.bank.ID)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "2025-11", periods[0].Period)
}
