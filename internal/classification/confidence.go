package classification

import (
	"math"
	"strings"

	"github.com/Veraticus/bankcat/internal/model"
)

// Confidence bounds.
const (
	MinConfidence = 0.30
	MaxConfidence = 0.95

	lowConfidence = 0.50
)

const lowConfidenceSuffix = " (Low confidence)"

var baseConfidence = map[model.MatchKind]float64{
	model.MatchVendorMemory: 0.85,
	model.MatchRule:         0.80,
	model.MatchKeyword:      0.75,
	model.MatchNature:       0.60,
	model.MatchAccountType:  0.55,
	model.MatchFallback:     0.40,
}

const unknownKindConfidence = 0.50

// Confidence adjustments.
const (
	vendorEvidenceBoost     = 0.10
	multiKeywordBoost       = 0.08
	historicalAccuracyBoost = 0.07
	natureFitBoost          = 0.05
	ambiguousTextPenalty    = -0.15
	unknownVendorPenalty    = -0.10
	contradictionPenalty    = -0.20

	ambiguousTokenCount = 3
	maxReasons          = 2
)

// Evidence is what the confidence calculator knows about a winning category.
type Evidence struct {
	Kind        model.MatchKind
	Description string
	Vendor      string
	Reasons     []string
	NatureScore float64
	KeywordHits int
	// HistoricalAccuracy and NatureContradiction are reserved signals. No
	// caller sets them yet.
	HistoricalAccuracy  bool
	NatureContradiction bool
}

// EvidenceFor builds the evidence of a scored category.
func EvidenceFor(score model.CategoryScore, description, vendor string) Evidence {
	return Evidence{
		Kind:        score.Kind,
		Description: description,
		Vendor:      vendor,
		Reasons:     score.Reasons,
		NatureScore: score.NatureScore,
		KeywordHits: score.KeywordHits,
	}
}

// Confidence maps evidence to a bounded confidence and a reason string.
func Confidence(e Evidence) (float64, string) {
	c, ok := baseConfidence[e.Kind]
	if !ok {
		c = unknownKindConfidence
	}

	if e.Kind == model.MatchVendorMemory {
		c += vendorEvidenceBoost
	}
	if e.KeywordHits > 1 {
		c += multiKeywordBoost
	}
	if e.HistoricalAccuracy {
		c += historicalAccuracyBoost
	}
	if e.NatureScore > NatureNeutral {
		c += natureFitBoost
	}
	if TokenCount(e.Description) < ambiguousTokenCount {
		c += ambiguousTextPenalty
	}
	if e.Vendor == "" {
		c += unknownVendorPenalty
	}
	if e.NatureContradiction {
		c += contradictionPenalty
	}

	c = clamp(round2(c), MinConfidence, MaxConfidence)

	reasons := e.Reasons
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = kindLabel(e.Kind)
	}
	if c < lowConfidence {
		reason += lowConfidenceSuffix
	}

	return c, reason
}

func kindLabel(kind model.MatchKind) string {
	switch kind {
	case model.MatchVendorMemory:
		return "Vendor memory match"
	case model.MatchRule:
		return "Rule match"
	case model.MatchKeyword:
		return "Keyword match"
	case model.MatchNature:
		return "Nature heuristic"
	case model.MatchAccountType:
		return "Account type heuristic"
	default:
		return "Heuristic match"
	}
}

// round2 removes float noise so equal evidence always prints the same.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}
