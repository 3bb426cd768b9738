package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is the business whose statements are being categorized.
type Client struct {
	CreatedAt   time.Time
	Name        string
	Industry    string
	Country     string
	Description string
	ID          int64
	IsActive    bool
}

// Bank is a single bank account belonging to a client. AccountType is free
// text ("Current", "Savings", "Credit Card", ...) and feeds the account-type
// context used during scoring.
type Bank struct {
	CreatedAt      time.Time
	OpeningBalance decimal.NullDecimal
	Name           string
	AccountMasked  string
	AccountType    string
	Currency       string
	ID             int64
	ClientID       int64
	IsActive       bool
}
