package classification

import (
	"strings"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/shopspring/decimal"
)

// Nature scores returned by NatureScore.
const (
	NatureMatch         = 1.0
	NatureNeutral       = 0.5
	NatureContradiction = 0.0
)

// LineNature is the debit/credit polarity of one statement line. A line with
// both or neither amount populated is ambiguous and has both flags false.
type LineNature struct {
	IsDebit  bool
	IsCredit bool
}

// HasPolarity reports whether the line is clearly a debit or a credit.
func (n LineNature) HasPolarity() bool {
	return n.IsDebit || n.IsCredit
}

// ClassifyNature derives the polarity of a line from its amounts.
func ClassifyNature(debit, credit decimal.Decimal) LineNature {
	return LineNature{
		IsDebit:  debit.IsPositive() && credit.IsZero(),
		IsCredit: credit.IsPositive() && debit.IsZero(),
	}
}

// NatureScore rates how well a category's expected polarity fits a line:
// 1.0 on an exact match, 0.0 on a contradiction and 0.5 when either side is
// neutral.
func NatureScore(nature model.Nature, line LineNature) float64 {
	switch nature {
	case model.NatureDebit:
		if line.IsDebit {
			return NatureMatch
		}
		if line.IsCredit {
			return NatureContradiction
		}
	case model.NatureCredit:
		if line.IsCredit {
			return NatureMatch
		}
		if line.IsDebit {
			return NatureContradiction
		}
	}
	return NatureNeutral
}

// AccountContext is the prior a bank account type gives about its lines.
type AccountContext struct {
	Label          string
	CommonKeywords []string
	LikelyExpense  bool
	LikelyIncome   bool
	LikelyTransfer bool
}

type accountRule struct {
	needles []string
	context AccountContext
}

// accountRules are checked in order and the first match wins.
var accountRules = []accountRule{
	{
		needles: []string{"credit", "card"},
		context: AccountContext{
			Label:          "credit card",
			LikelyExpense:  true,
			CommonKeywords: []string{"purchase", "payment", "charge", "fee", "interest"},
		},
	},
	{
		needles: []string{"current", "checking"},
		context: AccountContext{
			Label:          "current account",
			LikelyExpense:  true,
			LikelyIncome:   true,
			CommonKeywords: []string{"deposit", "withdrawal", "transfer", "fee"},
		},
	},
	{
		needles: []string{"savings"},
		context: AccountContext{
			Label:          "savings account",
			LikelyTransfer: true,
			CommonKeywords: []string{"interest", "transfer", "dividend"},
		},
	},
	{
		needles: []string{"investment"},
		context: AccountContext{
			Label:          "investment account",
			LikelyIncome:   true,
			CommonKeywords: []string{"dividend", "interest", "profit", "sale"},
		},
	},
}

// AccountContextFor maps a free-text bank account type to its context.
// Unknown or empty types get a neutral context.
func AccountContextFor(accountType string) AccountContext {
	at := Normalize(accountType)
	if at == "" {
		return AccountContext{}
	}
	for _, rule := range accountRules {
		for _, needle := range rule.needles {
			if strings.Contains(at, needle) {
				return rule.context
			}
		}
	}
	return AccountContext{}
}

// Favors reports whether the context leans towards the given category type.
func (c AccountContext) Favors(t model.CategoryType) bool {
	switch t {
	case model.CategoryTypeExpense:
		return c.LikelyExpense
	case model.CategoryTypeIncome:
		return c.LikelyIncome
	default:
		return false
	}
}
