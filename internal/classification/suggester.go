package classification

import (
	"fmt"

	"github.com/Veraticus/bankcat/internal/model"
)

// Fallback confidences and reasons used when no category scores.
const (
	FallbackTypedConfidence = 0.45
	FallbackFirstConfidence = 0.40

	ReasonFallbackIncome  = "Fallback: Credit transaction → Income"
	ReasonFallbackExpense = "Fallback: Debit transaction → Expense"
	ReasonFallbackFirst   = "Fallback: First available category"
	ReasonDefault         = "Default fallback"
)

// Suggester proposes a category and vendor for a statement line.
// It holds no mutable state and may be shared between goroutines.
type Suggester struct {
	scorer *Scorer
}

// NewSuggester creates a suggester backed by the given rule table. A nil
// table uses DefaultRuleTable.
func NewSuggester(rules *RuleTable) *Suggester {
	return &Suggester{scorer: NewScorer(rules)}
}

// Rank returns the n best-scoring categories for a line, best first. It is
// the candidate list SuggestOne picks its top entry from.
func (s *Suggester) Rank(in Input, n int) (model.CategoryScores, error) {
	scores := s.scorer.Score(in)
	if err := scores.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent category ranking: %w", err)
	}
	return scores.TopN(n), nil
}

// SuggestOne returns the suggestion for one line. Identical inputs always
// produce identical suggestions.
func (s *Suggester) SuggestOne(in Input) model.Suggestion {
	vendor := ExtractVendor(in.Description)

	if top := s.scorer.Score(in).Top(); top != nil {
		confidence, reason := Confidence(EvidenceFor(*top, in.Description, vendor))
		return model.Suggestion{
			Category:   top.Category.Name,
			Vendor:     vendor,
			Confidence: confidence,
			Reason:     reason,
			Kind:       top.Kind,
		}
	}

	return fallback(model.ActiveCategories(in.Categories), in.Line(), vendor)
}

func fallback(categories []model.Category, line LineNature, vendor string) model.Suggestion {
	if len(categories) == 0 {
		return model.Suggestion{
			Vendor:     vendor,
			Confidence: FallbackFirstConfidence,
			Reason:     ReasonDefault,
			Kind:       model.MatchNone,
		}
	}

	if line.IsCredit {
		if c, ok := firstOfType(categories, model.CategoryTypeIncome); ok {
			return fallbackTo(c, vendor, FallbackTypedConfidence, ReasonFallbackIncome)
		}
	}
	if c, ok := firstOfType(categories, model.CategoryTypeExpense); ok {
		return fallbackTo(c, vendor, FallbackTypedConfidence, ReasonFallbackExpense)
	}
	return fallbackTo(categories[0], vendor, FallbackFirstConfidence, ReasonFallbackFirst)
}

func fallbackTo(c model.Category, vendor string, confidence float64, reason string) model.Suggestion {
	return model.Suggestion{
		Category:   c.Name,
		Vendor:     vendor,
		Confidence: confidence,
		Reason:     reason,
		Kind:       model.MatchFallback,
	}
}

func firstOfType(categories []model.Category, t model.CategoryType) (model.Category, bool) {
	for _, c := range categories {
		if c.Type == t {
			return c, true
		}
	}
	return model.Category{}, false
}
