package classification

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidRule is returned when a rule table entry cannot be used.
var ErrInvalidRule = errors.New("invalid rule")

// DefaultRules is the starter rule table: category display name to the
// phrases that identify it.
func DefaultRules() map[string][]string {
	return map[string][]string{
		"Bank Charges":           {"bank charge", "service fee", "monthly fee", "commission"},
		"Cash Withdrawal":        {"atm", "cash withdrawal", "cashwd"},
		"Consulting Fee":         {"consulting", "advisory", "professional fee"},
		"Software Subscriptions": {"software", "subscription", "saas", "hosting", "google workspace", "microsoft", "aws"},
		"Office Supplies":        {"office supplies", "stationery", "printer", "toner"},
		"Travel Expenses":        {"uber", "lyft", "taxi", "airline", "flight", "hotel"},
		"Meals & Entertainment":  {"restaurant", "cafe", "coffee", "lunch", "dinner"},
		"Internal Transfer":      {"internal transfer", "to savings", "from savings", "own account"},
	}
}

// nonWordChar is a Unicode-aware \W: RE2's \W only knows ASCII letters, so an
// accented neighbour would otherwise count as a word boundary.
const nonWordChar = `[^\p{L}\p{M}\p{N}_]`

type rulePhrase struct {
	re     *regexp.Regexp
	phrase string
}

// RuleTable maps category names to whole-word phrase matchers. A RuleTable is
// immutable after construction.
type RuleTable struct {
	rules map[string][]rulePhrase
}

// NewRuleTable compiles a category name to phrase list mapping. Category
// names are matched exactly; phrases are matched case-insensitively as whole
// words or phrases against the description.
func NewRuleTable(rules map[string][]string) (*RuleTable, error) {
	table := &RuleTable{rules: make(map[string][]rulePhrase, len(rules))}

	for category, phrases := range rules {
		if strings.TrimSpace(category) == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidRule)
		}

		compiled := make([]rulePhrase, 0, len(phrases))
		for _, phrase := range phrases {
			p := Normalize(phrase)
			if p == "" {
				continue
			}
			pattern := `(?:^|` + nonWordChar + `)` + strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`) + `(?:` + nonWordChar + `|$)`
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to compile phrase %q for %s: %w", phrase, category, err)
			}
			compiled = append(compiled, rulePhrase{phrase: p, re: re})
		}
		if len(compiled) == 0 {
			return nil, fmt.Errorf("%w: %s has no phrases", ErrInvalidRule, category)
		}
		table.rules[category] = compiled
	}

	return table, nil
}

// DefaultRuleTable returns the compiled starter rule table.
func DefaultRuleTable() *RuleTable {
	table, err := NewRuleTable(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("default rule table: %v", err))
	}
	return table
}

// Match returns the first phrase of the category's rule found in the
// description.
func (t *RuleTable) Match(category, description string) (string, bool) {
	if t == nil {
		return "", false
	}
	phrases, ok := t.rules[category]
	if !ok {
		return "", false
	}
	d := strings.ToLower(description)
	for _, p := range phrases {
		if p.re.MatchString(d) {
			return p.phrase, true
		}
	}
	return "", false
}

// Categories lists the category names covered by the table, sorted.
func (t *RuleTable) Categories() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.rules))
	for name := range t.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Phrases returns the normalized phrases configured for a category.
func (t *RuleTable) Phrases(category string) []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.rules[category]))
	for _, p := range t.rules[category] {
		out = append(out, p.phrase)
	}
	return out
}
