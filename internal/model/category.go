package model

import (
	"strings"
	"time"
)

// CategoryType indicates whether a category is for income, expense, or anything else.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "Income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "Expense"
	// CategoryTypeOther represents balance-sheet and system categories (e.g., transfers).
	CategoryTypeOther CategoryType = "Other"
)

// Nature is the expected debit/credit polarity of a category.
type Nature string

const (
	// NatureDebit categories expect money leaving the account.
	NatureDebit Nature = "Dr"
	// NatureCredit categories expect money entering the account.
	NatureCredit Nature = "Cr"
	// NatureAny categories accept either polarity.
	NatureAny Nature = "Any"
)

// ParseNature maps the free-text nature values found in category masters
// (Dr, Debit, Cr, Credit, Any, blank) to a Nature. Unknown values are Any.
func ParseNature(s string) Nature {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dr", "debit":
		return NatureDebit
	case "cr", "credit":
		return NatureCredit
	default:
		return NatureAny
	}
}

// ParseCategoryType maps a free-text type to a CategoryType.
func ParseCategoryType(s string) (CategoryType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return CategoryTypeIncome, true
	case "expense":
		return CategoryTypeExpense, true
	case "other":
		return CategoryTypeOther, true
	default:
		return "", false
	}
}

// Category represents a client-specific classification target.
type Category struct {
	CreatedAt time.Time
	Code      string
	Name      string
	Type      CategoryType
	Nature    Nature
	ID        int64
	ClientID  int64
	IsActive  bool
}

// ActiveCategories returns the active categories in their original order.
func ActiveCategories(categories []Category) []Category {
	active := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active
}
