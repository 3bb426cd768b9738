package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCSV(t *testing.T, data, period string) *Result {
	t.Helper()
	result, err := NewCSVParser(DefaultMapping(), period).Parse(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	return result
}

func TestCSVParseDebitCreditColumns(t *testing.T) {
	data := `Date,Narration,Debit,Credit,Balance
2025-10-01,POS PURCHASE UBER TRIP 123456 REF9988,25.00,,975.00
02/10/2025,"EFT ACME HOLDINGS, INVOICE 2231",,"1,200.00","2,175.00"
,MISSING DATE,1.00,,
2025-10-03,,1.00,,
not a date,BAD DATE,1.00,,
2025-09-30,MONTHLY FEE,5.555,,
,,,,
`
	result := parseCSV(t, data, "2025-10")
	require.Len(t, result.Lines, 3)
	assert.Equal(t, 3, result.Dropped)
	assert.Equal(t, 1, result.OutOfRange)

	uber := result.Lines[0]
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), uber.Date)
	assert.Equal(t, "POS PURCHASE UBER TRIP 123456 REF9988", uber.Description)
	assert.Equal(t, "25.00", uber.Debit.StringFixed(2))
	assert.True(t, uber.Credit.IsZero())
	require.True(t, uber.Balance.Valid)
	assert.True(t, uber.Balance.Decimal.Equal(decimal.NewFromInt(975)))

	invoice := result.Lines[1]
	assert.Equal(t, time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC), invoice.Date)
	assert.Equal(t, "EFT ACME HOLDINGS, INVOICE 2231", invoice.Description)
	assert.True(t, invoice.Credit.Equal(decimal.NewFromInt(1200)))

	fee := result.Lines[2]
	assert.Equal(t, "5.56", fee.Debit.String())
	assert.False(t, fee.Balance.Valid)
}

func TestCSVParseSignedAmount(t *testing.T) {
	data := `Transaction Date,Description,Amount
15 Oct 2025,COFFEE SHOP,-4.50
16 Oct 2025,SALARY,(10.00)
17 Oct 2025,REFUND,12.00
`
	result := parseCSV(t, data, "")
	require.Len(t, result.Lines, 3)
	assert.Zero(t, result.OutOfRange)

	assert.Equal(t, "4.50", result.Lines[0].Debit.StringFixed(2))
	assert.True(t, result.Lines[0].Credit.IsZero())
	assert.Equal(t, "10.00", result.Lines[1].Debit.StringFixed(2))
	assert.Equal(t, "12.00", result.Lines[2].Credit.StringFixed(2))
}

func TestCSVParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "no date column", data: "Description,Debit\nx,1\n", wantErr: ErrMissingColumn},
		{name: "no description column", data: "Date,Debit\n2025-10-01,1\n", wantErr: ErrMissingColumn},
		{name: "no amount columns", data: "Date,Description\n2025-10-01,x\n", wantErr: ErrMissingColumn},
		{name: "bad amount", data: "Date,Description,Debit\n2025-10-01,x,abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVParser(DefaultMapping(), "").Parse(context.Background(), strings.NewReader(tt.data))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCSVParseEmpty(t *testing.T) {
	result := parseCSV(t, "", "2025-10")
	assert.Empty(t, result.Lines)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "0"},
		{in: "-", want: "0"},
		{in: "1,234.567", want: "1234.57"},
		{in: "R 99.99", want: "99.99"},
		{in: "(12.50)", want: "-12.5"},
		{in: "100.00 Dr", want: "-100"},
		{in: "100.00CR", want: "100"},
		{in: "-3", want: "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New("", "statement.QFX", "2025-10")
	require.NoError(t, err)
	assert.Equal(t, FormatOFX, p.Format())

	p, err = New("", "statement.csv", "")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, p.Format())

	_, err = New("xlsx", "statement.xlsx", "")
	require.Error(t, err)
}
