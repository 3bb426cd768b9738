package classification

import (
	"testing"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyNature(t *testing.T) {
	tests := []struct {
		name   string
		debit  decimal.Decimal
		credit decimal.Decimal
		want   LineNature
	}{
		{name: "debit", debit: dec("25.00"), credit: decimal.Zero, want: LineNature{IsDebit: true}},
		{name: "credit", debit: decimal.Zero, credit: dec("100"), want: LineNature{IsCredit: true}},
		{name: "both populated", debit: dec("1"), credit: dec("1"), want: LineNature{}},
		{name: "neither populated", debit: decimal.Zero, credit: decimal.Zero, want: LineNature{}},
		{name: "negative debit", debit: dec("-5"), credit: decimal.Zero, want: LineNature{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNature(tt.debit, tt.credit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsDebit || tt.want.IsCredit, got.HasPolarity())
		})
	}
}

func TestNatureScore(t *testing.T) {
	debit := LineNature{IsDebit: true}
	credit := LineNature{IsCredit: true}
	ambiguous := LineNature{}

	tests := []struct {
		nature model.Nature
		line   LineNature
		want   float64
	}{
		{model.NatureDebit, debit, 1.0},
		{model.NatureDebit, credit, 0.0},
		{model.NatureDebit, ambiguous, 0.5},
		{model.NatureCredit, credit, 1.0},
		{model.NatureCredit, debit, 0.0},
		{model.NatureCredit, ambiguous, 0.5},
		{model.NatureAny, debit, 0.5},
		{model.NatureAny, credit, 0.5},
		{model.NatureAny, ambiguous, 0.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, NatureScore(tt.nature, tt.line), 1e-9, "nature %s line %+v", tt.nature, tt.line)
	}
}

func TestAccountContextFor(t *testing.T) {
	tests := []struct {
		name        string
		accountType string
		expense     bool
		income      bool
		transfer    bool
		keywords    []string
	}{
		{
			name:        "credit card",
			accountType: "Credit Card",
			expense:     true,
			keywords:    []string{"purchase", "payment", "charge", "fee", "interest"},
		},
		{
			name:        "card alone",
			accountType: "Corporate CARD",
			expense:     true,
			keywords:    []string{"purchase", "payment", "charge", "fee", "interest"},
		},
		{
			name:        "checking",
			accountType: "Business Checking",
			expense:     true,
			income:      true,
			keywords:    []string{"deposit", "withdrawal", "transfer", "fee"},
		},
		{
			name:        "savings",
			accountType: "savings",
			transfer:    true,
			keywords:    []string{"interest", "transfer", "dividend"},
		},
		{
			name:        "investment",
			accountType: "Investment Account",
			income:      true,
			keywords:    []string{"dividend", "interest", "profit", "sale"},
		},
		{
			name:        "first rule wins",
			accountType: "Credit Union Savings",
			expense:     true,
			keywords:    []string{"purchase", "payment", "charge", "fee", "interest"},
		},
		{name: "unknown", accountType: "Wallet"},
		{name: "empty", accountType: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := AccountContextFor(tt.accountType)
			assert.Equal(t, tt.expense, ctx.LikelyExpense)
			assert.Equal(t, tt.income, ctx.LikelyIncome)
			assert.Equal(t, tt.transfer, ctx.LikelyTransfer)
			assert.Equal(t, tt.keywords, ctx.CommonKeywords)
		})
	}
}

func TestAccountContextFavors(t *testing.T) {
	ctx := AccountContextFor("checking")
	assert.True(t, ctx.Favors(model.CategoryTypeExpense))
	assert.True(t, ctx.Favors(model.CategoryTypeIncome))
	assert.False(t, ctx.Favors(model.CategoryTypeOther))

	assert.False(t, AccountContextFor("savings").Favors(model.CategoryTypeIncome))
}
