package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidScope is returned when a period scope is missing one of its keys.
var ErrInvalidScope = errors.New("invalid period scope")

// PeriodScope identifies one batch of statement lines: a client, one of its
// banks, and an opaque caller-defined period key (typically "YYYY-MM").
type PeriodScope struct {
	Period   string
	ClientID int64
	BankID   int64
}

// Validate ensures every key of the scope is populated.
func (s PeriodScope) Validate() error {
	if s.ClientID <= 0 {
		return fmt.Errorf("%w: missing client id", ErrInvalidScope)
	}
	if s.BankID <= 0 {
		return fmt.Errorf("%w: missing bank id", ErrInvalidScope)
	}
	if strings.TrimSpace(s.Period) == "" {
		return fmt.Errorf("%w: missing period", ErrInvalidScope)
	}
	return nil
}

func (s PeriodScope) String() string {
	return fmt.Sprintf("client=%d bank=%d period=%s", s.ClientID, s.BankID, s.Period)
}

// StatementLine is one standardized row read from a bank statement.
type StatementLine struct {
	Date        time.Time
	Balance     decimal.NullDecimal
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Fingerprint returns a stable hash used to spot the same line imported twice.
func (l *StatementLine) Fingerprint() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		l.Date.Format("2006-01-02"),
		l.Debit.StringFixed(2),
		l.Credit.StringFixed(2),
		strings.ToLower(strings.TrimSpace(l.Description)))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// DraftStatus tracks where a draft row is in the review cycle.
type DraftStatus string

// Draft status constants.
const (
	StatusDraft     DraftStatus = "Draft"
	StatusSuggested DraftStatus = "Suggested"
	StatusReviewed  DraftStatus = "Reviewed"
)

// DraftTransaction is an imported, not-yet-committed statement line together
// with the machine suggestion and the reviewer decision.
type DraftTransaction struct {
	CreatedAt         time.Time
	Date              time.Time
	Balance           decimal.NullDecimal
	Debit             decimal.Decimal
	Credit            decimal.Decimal
	Period            string
	ImportID          string
	Description       string
	SuggestedCategory string
	SuggestedVendor   string
	Reason            string
	FinalCategory     string
	FinalVendor       string
	Status            DraftStatus
	ID                int64
	ClientID          int64
	BankID            int64
	Confidence        float64
}

// IsReviewed reports whether the reviewer has recorded a final category.
func (d *DraftTransaction) IsReviewed() bool {
	return strings.TrimSpace(d.FinalCategory) != ""
}

// Line returns the statement portion of the draft row.
func (d *DraftTransaction) Line() StatementLine {
	return StatementLine{
		Date:        d.Date,
		Description: d.Description,
		Debit:       d.Debit,
		Credit:      d.Credit,
		Balance:     d.Balance,
	}
}

// SuggestionUpdate overwrites the suggested_* fields of one draft row.
type SuggestionUpdate struct {
	Category   string
	Vendor     string
	Reason     string
	ID         int64
	Confidence float64
}

// ReviewDecision records the reviewer's final_* fields for one draft row.
type ReviewDecision struct {
	FinalCategory string
	FinalVendor   string
	ID            int64
}

// PeriodSummary describes the draft rows held for one period.
type PeriodSummary struct {
	FirstDate time.Time
	LastDate  time.Time
	Period    string
	Rows      int
	Reviewed  int
}
