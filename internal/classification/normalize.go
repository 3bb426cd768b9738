// Package classification turns bank statement lines into category suggestions.
// Every function in this package is pure and safe for concurrent use.
package classification

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxVendorTokens caps the number of words kept in an extracted vendor name.
const maxVendorTokens = 4

var whitespaceRun = regexp.MustCompile(`\s+`)

// vendorPrefixes are the statement boilerplate stripped from the start of a
// description. They are applied one after another in this order, so
// "POS PURCHASE" is removed by the first entry and a leftover "PURCHASE"
// prefix would still be removed by a later one.
var vendorPrefixes = compilePrefixes(
	"pos purchase",
	"pos",
	"card purchase",
	"purchase",
	"payment to",
	"payment from",
	"eft",
	"trf",
	"debit card",
	"credit card",
)

var (
	trailingLongID = regexp.MustCompile(`\s+\d{4,}.*$`)
	trailingAmount = regexp.MustCompile(`\s+[-+]?\d[\d,]*[.,]\d{2}$`)
	trailingRef    = regexp.MustCompile(`(?i)\s+(?:ref|id)(?:[\s#:.\-]*[a-z0-9\-]*\d[a-z0-9\-]*)?$`)
	numericToken   = regexp.MustCompile(`^[-+]?[\d.,/:\-]+$`)
)

var stopWords = map[string]bool{
	"at":  true,
	"on":  true,
	"the": true,
	"and": true,
	"or":  true,
	"for": true,
	"via": true,
	"by":  true,
}

func compilePrefixes(prefixes ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(prefixes))
	for _, p := range prefixes {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
		compiled = append(compiled, regexp.MustCompile(`(?i)^`+pattern+`(?:\s+|$)`))
	}
	return compiled
}

// Normalize trims, lower-cases and collapses whitespace runs to one space.
func Normalize(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

// ExtractVendor guesses a display vendor name from a statement description.
// It returns an empty string when nothing meaningful remains.
func ExtractVendor(description string) string {
	d := whitespaceRun.ReplaceAllString(strings.TrimSpace(description), " ")
	if d == "" {
		return ""
	}

	for _, prefix := range vendorPrefixes {
		d = prefix.ReplaceAllString(d, "")
	}

	// Suffixes can be stacked ("... 12.50 REF 88"), so strip until stable.
	for {
		before := d
		d = trailingLongID.ReplaceAllString(d, "")
		d = trailingAmount.ReplaceAllString(d, "")
		d = trailingRef.ReplaceAllString(d, "")
		d = strings.TrimSpace(d)
		if d == before {
			break
		}
	}

	tokens := make([]string, 0, maxVendorTokens)
	for _, tok := range strings.Fields(d) {
		tok = strings.Trim(tok, "*-,:;#/|")
		if tok == "" || numericToken.MatchString(tok) || stopWords[strings.ToLower(tok)] {
			continue
		}
		tokens = append(tokens, tok)
		if len(tokens) == maxVendorTokens {
			break
		}
	}
	if len(tokens) == 0 {
		return ""
	}

	return cases.Title(language.Und).String(strings.Join(tokens, " "))
}

// TokenCount returns the number of whitespace-separated tokens in text.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}
