package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionAccuracy(t *testing.T) {
	tests := []struct {
		want   *float64
		name   string
		drafts []DraftTransaction
	}{
		{
			name:   "no rows",
			drafts: nil,
			want:   nil,
		},
		{
			name: "all matched ignoring case and padding",
			drafts: []DraftTransaction{
				{SuggestedCategory: "Bank Charges", FinalCategory: "bank charges "},
				{SuggestedCategory: "Sales", FinalCategory: "Sales"},
			},
			want: floatPtr(1.0),
		},
		{
			name: "overrides and missing suggestions",
			drafts: []DraftTransaction{
				{SuggestedCategory: "Bank Charges", FinalCategory: "Travel Expenses"},
				{SuggestedCategory: "", FinalCategory: "Sales"},
				{SuggestedCategory: "Sales", FinalCategory: "Sales"},
				{SuggestedCategory: "Sales", FinalCategory: "Sales"},
			},
			want: floatPtr(0.5),
		},
		{
			name: "unreviewed rows are skipped",
			drafts: []DraftTransaction{
				{SuggestedCategory: "Sales"},
				{SuggestedCategory: "Sales"},
				{SuggestedCategory: "Sales", FinalCategory: "Sales"},
			},
			want: floatPtr(1.0),
		},
		{
			name: "nothing reviewed",
			drafts: []DraftTransaction{
				{SuggestedCategory: "Sales"},
				{SuggestedCategory: "Bank Charges"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestionAccuracy(tt.drafts)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestDerivePeriodState(t *testing.T) {
	reviewed := DraftTransaction{FinalCategory: "Sales"}
	pending := DraftTransaction{SuggestedCategory: "Sales"}

	tests := []struct {
		name    string
		want    PeriodState
		drafts  []DraftTransaction
		commits int
	}{
		{name: "nothing", want: PeriodEmpty},
		{name: "imported", drafts: []DraftTransaction{pending}, want: PeriodImported},
		{name: "partly reviewed", drafts: []DraftTransaction{pending, reviewed}, want: PeriodReviewed},
		{name: "committed", commits: 1, want: PeriodCommitted},
		{name: "re-imported after commit", drafts: []DraftTransaction{pending}, commits: 1, want: PeriodImported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePeriodState(tt.drafts, tt.commits))
		})
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
