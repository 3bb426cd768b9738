package model

import (
	"fmt"
	"sort"
)

// CategoryScore is the accumulated evidence that a line belongs to a category.
type CategoryScore struct {
	Category    Category
	Kind        MatchKind
	Reasons     []string
	Score       float64
	NatureScore float64
	// KeywordHits counts the keyword-weight records that contributed.
	KeywordHits int
}

// Validate ensures the CategoryScore has valid data.
func (s *CategoryScore) Validate() error {
	if s.Category.Name == "" {
		return fmt.Errorf("category name is required")
	}

	if s.Score < 0.0 {
		return fmt.Errorf("score must not be negative, got %.2f", s.Score)
	}

	if s.NatureScore < 0.0 || s.NatureScore > 1.0 {
		return fmt.Errorf("nature score must be between 0.0 and 1.0, got %.2f", s.NatureScore)
	}

	return nil
}

// CategoryScores is a ranked list of category scores.
type CategoryScores []CategoryScore

// Sort orders the scores by score descending. Equal scores keep their input
// order; there is deliberately no secondary key.
func (r CategoryScores) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Score > r[j].Score
	})
}

// Top returns the highest-scoring category, or nil if empty. The receiver is
// expected to be sorted already.
func (r CategoryScores) Top() *CategoryScore {
	if len(r) == 0 {
		return nil
	}
	return &r[0]
}

// TopN returns the N highest-scoring categories of a sorted list.
func (r CategoryScores) TopN(n int) CategoryScores {
	if n <= 0 {
		return CategoryScores{}
	}

	if n > len(r) {
		n = len(r)
	}

	result := make(CategoryScores, n)
	copy(result, r[:n])
	return result
}

// Validate ensures all scores in the slice are valid and unique.
func (r CategoryScores) Validate() error {
	seen := make(map[string]bool)

	for i := range r {
		if err := r[i].Validate(); err != nil {
			return fmt.Errorf("invalid score at index %d: %w", i, err)
		}

		if seen[r[i].Category.Name] {
			return fmt.Errorf("duplicate category %q in scores", r[i].Category.Name)
		}
		seen[r[i].Category.Name] = true
	}

	return nil
}
