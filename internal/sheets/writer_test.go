package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
)

func sampleCommit() (*model.CommitRecord, []model.CommittedTransaction) {
	accuracy := 2.0 / 3.0
	record := &model.CommitRecord{
		ID:            12,
		Period:        "2025-10",
		CommittedBy:   "reviewer",
		CommittedAt:   time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC),
		RowsCommitted: 3,
		Accuracy:      &accuracy,
		Notes:         "october close",
	}
	txns := []model.CommittedTransaction{
		{
			Date:              time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			Description:       "POS PURCHASE UBER TRIP",
			Debit:             decimal.RequireFromString("25.5"),
			Balance:           decimal.NewNullDecimal(decimal.NewFromInt(975)),
			Category:          "Travel Expenses",
			Vendor:            "Uber Trip",
			SuggestedCategory: "Travel Expenses",
			Confidence:        0.8,
			Reason:            "Rule: uber",
		},
		{
			Date:        time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
			Description: "EFT ACME HOLDINGS",
			Credit:      decimal.NewFromInt(1200),
			Category:    "Sales",
			Confidence:  0.6,
		},
		{
			Date:        time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC),
			Description: "TAXI",
			Debit:       decimal.NewFromInt(40),
			Category:    "Travel Expenses",
		},
	}
	return record, txns
}

func TestPrepareCommitData(t *testing.T) {
	record, txns := sampleCommit()
	values, headerRow := prepareCommitData(record, txns)

	assert.Equal(t, []any{"Committed Ledger", "2025-10"}, values[0])
	assert.Contains(t, values, []any{"Rows", 3})
	assert.Contains(t, values, []any{"Suggestion Accuracy", "66.7%"})
	assert.Contains(t, values, []any{"Committed At", "2025-11-02 09:30"})

	// Categories are ordered by total movement.
	assert.Equal(t, []any{"Sales", 1, "1200.00", "0.00"}, values[12])
	assert.Equal(t, []any{"Travel Expenses", 2, "65.50", "0.00"}, values[13])
	assert.Equal(t, []any{"Total", 3, "65.50", "1200.00"}, values[14])

	require.Equal(t, ledgerHeader, values[headerRow])
	rows := values[headerRow+1:]
	require.Len(t, rows, 3)
	assert.Equal(t, []any{
		"2025-10-01", "POS PURCHASE UBER TRIP", "25.50", "0.00", "975.00",
		"Travel Expenses", "Uber Trip", "Travel Expenses", "0.80", "Rule: uber",
	}, rows[0])
	assert.Equal(t, "", rows[1][4])
	for _, row := range rows {
		assert.Len(t, row, ledgerColumns)
	}
}

func TestPrepareCommitDataWithoutAccuracy(t *testing.T) {
	record, _ := sampleCommit()
	record.Accuracy = nil

	values, headerRow := prepareCommitData(record, nil)
	assert.Contains(t, values, []any{"Suggestion Accuracy", "n/a"})
	assert.Len(t, values, headerRow+1)
}

func TestSheetTitle(t *testing.T) {
	record, _ := sampleCommit()
	assert.Equal(t, "2025-10 #12", SheetTitle(record))
	assert.Equal(t, "'it''s'", quoteTitle("it's"))
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		err       error
		name      string
		after     time.Duration
		retryable bool
		rateLimit bool
	}{
		{
			name:      "too many requests with retry-after",
			err:       &googleapi.Error{Code: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"7"}}},
			retryable: true,
			rateLimit: true,
			after:     7 * time.Second,
		},
		{
			name: "quota refusal as 403",
			err: &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{
				{Reason: "userRateLimitExceeded"},
			}},
			retryable: true,
			rateLimit: true,
		},
		{
			name:      "server error",
			err:       fmt.Errorf("failed to write batch starting at row 1: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}),
			retryable: true,
		},
		{
			name: "permission denied",
			err:  &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}},
		},
		{
			name: "not found",
			err:  &googleapi.Error{Code: http.StatusNotFound},
		},
		{
			name:      "transport failure",
			err:       errors.New("connection reset by peer"),
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.retryable, common.IsRetryable(got))
			assert.Equal(t, tt.rateLimit, errors.Is(got, common.ErrRateLimit))

			var marked *common.RetryableError
			require.ErrorAs(t, got, &marked)
			assert.Equal(t, tt.after, marked.After)
		})
	}

	assert.NoError(t, classifyAPIError(nil))
	assert.False(t, common.IsRetryable(classifyAPIError(context.Canceled)))
}

func TestClassifiedErrorsDriveRetry(t *testing.T) {
	opts := common.RetryOptions{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	err := common.WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return classifyAPIError(&googleapi.Error{Code: http.StatusBadGateway})
		}
		return nil
	}, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = common.WithRetry(context.Background(), func() error {
		calls++
		return classifyAPIError(&googleapi.Error{Code: http.StatusBadRequest, Message: "bad range"})
	}, opts)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
