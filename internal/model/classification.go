// Package model defines the core domain models used throughout the application.
package model

// MatchKind names the strongest kind of evidence behind a category score.
type MatchKind string

// Match kinds, strongest first.
const (
	MatchVendorMemory MatchKind = "vendor_memory"
	MatchRule         MatchKind = "rule_match"
	MatchKeyword      MatchKind = "keyword_match"
	MatchNature       MatchKind = "nature_heuristic"
	MatchAccountType  MatchKind = "account_type_heuristic"
	MatchFallback     MatchKind = "fallback"
	MatchNone         MatchKind = ""
)

// Suggestion is the machine proposal for one statement line. An empty
// Category means no suggestion could be made.
type Suggestion struct {
	Category   string
	Vendor     string
	Reason     string
	Kind       MatchKind
	Confidence float64
}

// HasCategory reports whether a category was suggested.
func (s Suggestion) HasCategory() bool {
	return s.Category != ""
}

// Update converts the suggestion into a draft row update.
func (s Suggestion) Update(id int64) SuggestionUpdate {
	return SuggestionUpdate{
		ID:         id,
		Category:   s.Category,
		Vendor:     s.Vendor,
		Confidence: s.Confidence,
		Reason:     s.Reason,
	}
}
