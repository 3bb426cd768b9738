package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleTableMatch(t *testing.T) {
	table := DefaultRuleTable()

	tests := []struct {
		name        string
		category    string
		description string
		wantPhrase  string
		wantMatch   bool
	}{
		{name: "single word", category: "Cash Withdrawal", description: "ATM WITHDRAWAL MAIN ST", wantPhrase: "atm", wantMatch: true},
		{name: "word inside another word", category: "Cash Withdrawal", description: "BATMAN COMICS", wantMatch: false},
		{name: "phrase across extra spaces", category: "Bank Charges", description: "Monthly BANK  CHARGE", wantPhrase: "bank charge", wantMatch: true},
		{name: "phrase at end", category: "Bank Charges", description: "Account service fee", wantPhrase: "service fee", wantMatch: true},
		{name: "punctuation boundary", category: "Travel Expenses", description: "POS*UBER/TRIP", wantPhrase: "uber", wantMatch: true},
		{name: "category name must be exact", category: "bank charges", description: "bank charge", wantMatch: false},
		{name: "unknown category", category: "Rent", description: "atm", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phrase, ok := table.Match(tt.category, tt.description)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantPhrase, phrase)
		})
	}
}

func TestRuleTableMatchNonASCIIBoundaries(t *testing.T) {
	table, err := NewRuleTable(map[string][]string{"Accommodation": {"hotel"}})
	require.NoError(t, err)

	tests := []struct {
		description string
		want        bool
	}{
		{description: "HOTEL LISBOA", want: true},
		{description: "POS*HOTEL/Porto", want: true},
		{description: "HOTELÉ LISBOA", want: false},
		{description: "ÉHOTEL", want: false},
		{description: "HOTEL\u0301 CASCAIS", want: false},
		{description: "HOTEL2000", want: false},
		{description: "CAFÉ HOTEL", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, ok := table.Match("Accommodation", tt.description)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestNewRuleTable(t *testing.T) {
	t.Run("custom table replaces defaults", func(t *testing.T) {
		table, err := NewRuleTable(map[string][]string{
			"Fuel": {"Shell", "  bp  "},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Fuel"}, table.Categories())
		assert.Equal(t, []string{"shell", "bp"}, table.Phrases("Fuel"))

		_, ok := table.Match("Cash Withdrawal", "ATM")
		assert.False(t, ok)

		phrase, ok := table.Match("Fuel", "BP EXPRESS 22")
		assert.True(t, ok)
		assert.Equal(t, "bp", phrase)
	})

	t.Run("empty category name", func(t *testing.T) {
		_, err := NewRuleTable(map[string][]string{" ": {"x"}})
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("no usable phrases", func(t *testing.T) {
		_, err := NewRuleTable(map[string][]string{"Fuel": {"", "  "}})
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("phrases with regex characters", func(t *testing.T) {
		table, err := NewRuleTable(map[string][]string{"Meals & Entertainment": {"a+b (deli)"}})
		require.NoError(t, err)
		_, ok := table.Match("Meals & Entertainment", "lunch at a+b (deli) today")
		assert.True(t, ok)
	})
}

func TestNilRuleTable(t *testing.T) {
	var table *RuleTable
	_, ok := table.Match("Bank Charges", "bank charge")
	assert.False(t, ok)
	assert.Nil(t, table.Categories())
}

func TestDefaultRuleTableCoversStarterCategories(t *testing.T) {
	assert.Equal(t, []string{
		"Bank Charges",
		"Cash Withdrawal",
		"Consulting Fee",
		"Internal Transfer",
		"Meals & Entertainment",
		"Office Supplies",
		"Software Subscriptions",
		"Travel Expenses",
	}, DefaultRuleTable().Categories())
}
