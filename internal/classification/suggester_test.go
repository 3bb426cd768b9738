package classification

import (
	"sync"
	"testing"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestOneTravelScenario(t *testing.T) {
	s := NewSuggester(nil)

	got := s.SuggestOne(Input{
		Description: "POS PURCHASE UBER TRIP 123456 REF9988",
		Debit:       dec("25.00"),
		Credit:      decimal.Zero,
		AccountType: "Business Current",
		Categories: []model.Category{
			category("Sales", model.CategoryTypeIncome, model.NatureCredit),
			category("Travel Expenses", model.CategoryTypeExpense, model.NatureAny),
		},
	})

	assert.Equal(t, "Travel Expenses", got.Category)
	assert.Equal(t, "Uber Trip", got.Vendor)
	assert.Equal(t, model.MatchRule, got.Kind)
	assert.GreaterOrEqual(t, got.Confidence, 0.80)
	assert.Contains(t, got.Reason, "Rule: uber")
	assert.NotContains(t, got.Reason, "Low confidence")
}

func TestSuggestOneVendorMemory(t *testing.T) {
	s := NewSuggester(nil)

	got := s.SuggestOne(Input{
		Description: "Card purchase ACME Stationers Ltd 44.10",
		Debit:       dec("44.10"),
		Categories: []model.Category{
			category("Office Supplies", model.CategoryTypeExpense, model.NatureDebit),
			category("Stationery", model.CategoryTypeExpense, model.NatureDebit),
		},
		VendorMemory: []model.VendorMemoryEntry{
			{VendorKey: "acme stationers", Category: "Stationery", Confidence: 0.7},
		},
	})

	assert.Equal(t, "Stationery", got.Category)
	assert.Equal(t, "Acme Stationers Ltd", got.Vendor)
	assert.Equal(t, model.MatchVendorMemory, got.Kind)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, "Vendor memory: acme stationers, Nature: Dr matches debit", got.Reason)
}

func TestSuggestOneFallbacks(t *testing.T) {
	inactiveIncome := category("Dormant Income", model.CategoryTypeIncome, model.NatureDebit)
	inactiveIncome.IsActive = false

	tests := []struct {
		name           string
		in             Input
		wantCategory   string
		wantReason     string
		wantKind       model.MatchKind
		wantConfidence float64
	}{
		{
			name: "empty description with no usable categories",
			in: Input{
				AccountType: "Wallet",
				Categories: []model.Category{
					category("Suspense", model.CategoryTypeOther, model.NatureAny),
					category("Clearing", model.CategoryTypeOther, model.NatureAny),
				},
			},
			wantCategory:   "Suspense",
			wantReason:     ReasonFallbackFirst,
			wantKind:       model.MatchFallback,
			wantConfidence: 0.40,
		},
		{
			name:           "empty category list",
			in:             Input{AccountType: "Wallet"},
			wantReason:     ReasonDefault,
			wantKind:       model.MatchNone,
			wantConfidence: 0.40,
		},
		{
			name: "only inactive categories",
			in: Input{
				Description: "anything",
				Credit:      dec("5"),
				Categories:  []model.Category{inactiveIncome},
			},
			wantReason:     ReasonDefault,
			wantKind:       model.MatchNone,
			wantConfidence: 0.40,
		},
		{
			name: "credit line falls back to income",
			in: Input{
				Description: "unmatched credit",
				Credit:      dec("100"),
				AccountType: "Wallet",
				Categories: []model.Category{
					inactiveIncome,
					category("Rent", model.CategoryTypeExpense, model.NatureDebit),
					category("Odd Income", model.CategoryTypeIncome, model.NatureDebit),
				},
			},
			wantCategory:   "Odd Income",
			wantReason:     ReasonFallbackIncome,
			wantKind:       model.MatchFallback,
			wantConfidence: 0.45,
		},
		{
			name: "debit line falls back to expense",
			in: Input{
				Description: "unmatched debit",
				Debit:       dec("100"),
				AccountType: "Wallet",
				Categories: []model.Category{
					category("Sales", model.CategoryTypeIncome, model.NatureCredit),
					category("Refunds Paid", model.CategoryTypeExpense, model.NatureCredit),
				},
			},
			wantCategory:   "Refunds Paid",
			wantReason:     ReasonFallbackExpense,
			wantKind:       model.MatchFallback,
			wantConfidence: 0.45,
		},
		{
			name: "credit line without income uses expense",
			in: Input{
				Description: "unmatched credit",
				Credit:      dec("100"),
				Categories: []model.Category{
					category("Rent", model.CategoryTypeExpense, model.NatureDebit),
				},
			},
			wantCategory:   "Rent",
			wantReason:     ReasonFallbackExpense,
			wantKind:       model.MatchFallback,
			wantConfidence: 0.45,
		},
	}

	s := NewSuggester(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SuggestOne(tt.in)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.GreaterOrEqual(t, got.Confidence, 0.40)
			assert.LessOrEqual(t, got.Confidence, 0.45)
		})
	}
}

func TestSuggestOneDeterministicAndConcurrent(t *testing.T) {
	s := NewSuggester(nil)
	in := Input{
		Description: "ATM CASH WITHDRAWAL 000123 CITY BRANCH",
		Debit:       dec("200"),
		AccountType: "Business Checking",
		Categories: []model.Category{
			category("Cash Withdrawal", model.CategoryTypeExpense, model.NatureDebit),
			category("Bank Charges", model.CategoryTypeExpense, model.NatureDebit),
			category("Sales", model.CategoryTypeIncome, model.NatureCredit),
		},
		KeywordWeights: []model.KeywordWeight{
			{Token: "withdrawal", Category: "Cash Withdrawal", Weight: 1.5},
		},
	}
	want := s.SuggestOne(in)
	require.Equal(t, "Cash Withdrawal", want.Category)

	var wg sync.WaitGroup
	results := make([]model.Suggestion, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.SuggestOne(in)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestSuggestOneConfidenceWithinBounds(t *testing.T) {
	s := NewSuggester(nil)
	cats := []model.Category{
		category("Bank Charges", model.CategoryTypeExpense, model.NatureDebit),
		category("Sales", model.CategoryTypeIncome, model.NatureCredit),
		category("Internal Transfer", model.CategoryTypeOther, model.NatureAny),
	}
	descriptions := []string{"", "fee", "monthly fee", "internal transfer to savings 0001", "Customer payment INV 2231"}
	amounts := [][2]string{{"0", "0"}, {"10", "0"}, {"0", "10"}, {"5", "5"}}
	accounts := []string{"", "Credit Card", "Current", "Savings", "Investment", "Wallet"}

	for _, desc := range descriptions {
		for _, amt := range amounts {
			for _, acct := range accounts {
				got := s.SuggestOne(Input{
					Description: desc,
					Debit:       dec(amt[0]),
					Credit:      dec(amt[1]),
					AccountType: acct,
					Categories:  cats,
				})
				assert.GreaterOrEqual(t, got.Confidence, MinConfidence, "desc=%q amt=%v acct=%q", desc, amt, acct)
				assert.LessOrEqual(t, got.Confidence, MaxConfidence, "desc=%q amt=%v acct=%q", desc, amt, acct)
				if got.Kind == model.MatchFallback {
					assert.GreaterOrEqual(t, got.Confidence, FallbackFirstConfidence)
					assert.LessOrEqual(t, got.Confidence, FallbackTypedConfidence)
				}
			}
		}
	}
}

func TestRank(t *testing.T) {
	s := NewSuggester(nil)
	in := Input{
		Description: "POS PURCHASE UBER TRIP 123456 REF9988",
		Debit:       dec("25.00"),
		AccountType: "Business Current",
		Categories: []model.Category{
			category("Sales", model.CategoryTypeIncome, model.NatureCredit),
			category("Bank Charges", model.CategoryTypeExpense, model.NatureDebit),
			category("Travel Expenses", model.CategoryTypeExpense, model.NatureAny),
		},
	}

	all, err := s.Rank(in, 10)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, s.SuggestOne(in).Category, all[0].Category.Name)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}

	top, err := s.Rank(in, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Travel Expenses", top[0].Category.Name)

	none, err := s.Rank(in, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
