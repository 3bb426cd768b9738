package classification

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/shopspring/decimal"
)

// Evidence weights added to a category score.
const (
	vendorMemoryWeight   = 0.8
	keywordWeightCap     = 0.6
	keywordWeightDivisor = 10.0
	natureWeight         = 0.3
	accountContextWeight = 0.2
	ruleWeight           = 0.4

	// minKeywordLength is the shortest token a keyword weight may match on.
	minKeywordLength = 3
)

// Input is everything needed to suggest a category for one statement line.
// Categories may include inactive entries; they are filtered here.
type Input struct {
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Description    string
	AccountType    string
	Categories     []model.Category
	VendorMemory   []model.VendorMemoryEntry
	KeywordWeights []model.KeywordWeight
}

// Line returns the polarity of the input line.
func (in Input) Line() LineNature {
	return ClassifyNature(in.Debit, in.Credit)
}

// Scorer ranks a client's categories against one statement line.
type Scorer struct {
	rules *RuleTable
}

// NewScorer creates a scorer using the given rule table. A nil table falls
// back to DefaultRuleTable.
func NewScorer(rules *RuleTable) *Scorer {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	return &Scorer{rules: rules}
}

// Score accumulates evidence for every active category and returns the ones
// with a positive score, best first. Ties keep category order.
func (s *Scorer) Score(in Input) model.CategoryScores {
	desc := Normalize(in.Description)
	line := in.Line()
	ctx := AccountContextFor(in.AccountType)

	scores := make(model.CategoryScores, 0, len(in.Categories))
	for _, cat := range model.ActiveCategories(in.Categories) {
		cs := s.scoreCategory(cat, desc, in, line, ctx)
		if cs.Score > 0 {
			scores = append(scores, cs)
		}
	}

	scores.Sort()
	return scores
}

func (s *Scorer) scoreCategory(cat model.Category, desc string, in Input, line LineNature, ctx AccountContext) model.CategoryScore {
	cs := model.CategoryScore{Category: cat, Kind: model.MatchNone}

	for _, vm := range in.VendorMemory {
		key := Normalize(vm.VendorKey)
		if key == "" || vm.Category != cat.Name || !strings.Contains(desc, key) {
			continue
		}
		cs.Score += vendorMemoryWeight
		cs.Kind = model.MatchVendorMemory
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("Vendor memory: %s", vm.VendorKey))
		break
	}

	for _, kw := range in.KeywordWeights {
		token := Normalize(kw.Token)
		if utf8.RuneCountInString(token) < minKeywordLength || kw.Category != cat.Name || !strings.Contains(desc, token) {
			continue
		}
		contribution := math.Min(keywordWeightCap, kw.Weight/keywordWeightDivisor)
		if contribution <= 0 {
			continue
		}
		cs.Score += contribution
		cs.KeywordHits++
		if cs.Kind != model.MatchVendorMemory {
			cs.Kind = model.MatchKeyword
		}
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("Keyword: %s", token))
	}

	// An ambiguous line carries no polarity evidence, so it adds nothing
	// even though its nature score is neutral.
	cs.NatureScore = NatureScore(cat.Nature, line)
	if line.HasPolarity() {
		if contribution := cs.NatureScore * natureWeight; contribution > 0 {
			cs.Score += contribution
			if cs.Kind == model.MatchNone {
				cs.Kind = model.MatchNature
			}
			if cs.NatureScore == NatureMatch {
				cs.Reasons = append(cs.Reasons, fmt.Sprintf("Nature: %s matches %s", cat.Nature, polarityLabel(line)))
			}
		}
	}

	if ctx.Favors(cat.Type) {
		cs.Score += accountContextWeight
		if cs.Kind == model.MatchNone {
			cs.Kind = model.MatchAccountType
		}
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("Account type: %s favors %s", ctx.Label, cat.Type))
	}

	if phrase, ok := s.rules.Match(cat.Name, in.Description); ok {
		cs.Score += ruleWeight
		switch cs.Kind {
		case model.MatchNone, model.MatchNature, model.MatchAccountType:
			cs.Kind = model.MatchRule
		}
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("Rule: %s", phrase))
	}

	return cs
}

func polarityLabel(line LineNature) string {
	if line.IsDebit {
		return "debit"
	}
	return "credit"
}
