// Package learning reinforces vendor memory and keyword weights from
// reviewer decisions once a period is committed.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/Veraticus/bankcat/internal/service"
)

// Tokenizer and weight constants.
const (
	MinTokenLength       = 3
	MaxTokensPerRow      = 30
	KeywordDelta         = 0.10
	MaxTokenRepeats      = 3
	DefaultMergeDistance = 2

	// Keys shorter than this are only merged on exact match.
	MinMergeKeyLength = 6
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)

// Config holds configuration options for the updater.
type Config struct {
	// MergeDistance is the largest Levenshtein distance at which a new
	// vendor key is folded onto an existing one. Zero disables merging.
	MergeDistance int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MergeDistance: DefaultMergeDistance}
}

// Updater turns committed transactions into learning-table updates.
type Updater struct {
	store  service.LearningStore
	now    func() time.Time
	config Config
}

// NewUpdater creates an updater backed by the given store.
func NewUpdater(store service.LearningStore, config Config) *Updater {
	if config.MergeDistance < 0 {
		config.MergeDistance = 0
	}
	return &Updater{store: store, config: config, now: time.Now}
}

// Learn records one vendor confirmation and the description keywords of
// every reviewed committed row. Rows whose category was filled in from the
// suggestion are skipped so the suggester never confirms itself. All updates
// are applied in a single store call.
func (u *Updater) Learn(ctx context.Context, clientID int64, txns []model.CommittedTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	existing, err := u.store.ListVendorMemory(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to load vendor memory: %w", err)
	}
	keys := make([]string, 0, len(existing))
	for _, vm := range existing {
		keys = append(keys, classification.Normalize(vm.VendorKey))
	}

	batch := model.LearningBatch{ClientID: clientID, SeenAt: u.now()}
	merged := 0
	for i := range txns {
		tx := &txns[i]
		category := strings.TrimSpace(tx.Category)
		if category == "" || !tx.Reviewed {
			continue
		}

		vendor := strings.TrimSpace(tx.Vendor)
		if vendor == "" {
			vendor = strings.TrimSpace(tx.SuggestedVendor)
		}
		if key := classification.Normalize(vendor); key != "" {
			resolved, ok := u.resolveKey(key, keys)
			if ok && resolved != key {
				merged++
				slog.Debug("merged vendor key", "vendor", key, "into", resolved)
			}
			if !ok {
				keys = append(keys, resolved)
			}
			batch.Vendors = append(batch.Vendors, model.VendorObservation{VendorKey: resolved, Category: category})
		}

		counts, order := countTokens(Tokenize(tx.Description))
		for _, token := range order {
			batch.Keywords = append(batch.Keywords, model.KeywordObservation{
				Token:    token,
				Category: category,
				Delta:    KeywordDelta * float64(min(MaxTokenRepeats, counts[token])),
			})
		}
	}

	if batch.IsEmpty() {
		return nil
	}
	if err := u.store.ApplyLearning(ctx, batch); err != nil {
		return fmt.Errorf("failed to apply learning: %w", err)
	}

	slog.Info("learned from commit",
		"client_id", clientID,
		"rows", len(txns),
		"vendors", len(batch.Vendors),
		"merged_vendors", merged,
		"keywords", len(batch.Keywords))
	return nil
}

// resolveKey returns the known key the vendor should be recorded under and
// whether it was already known.
func (u *Updater) resolveKey(key string, known []string) (string, bool) {
	for _, k := range known {
		if k == key {
			return k, true
		}
	}
	if u.config.MergeDistance == 0 || utf8.RuneCountInString(key) < MinMergeKeyLength {
		return key, false
	}

	best, bestDist := "", u.config.MergeDistance+1
	for _, k := range known {
		if utf8.RuneCountInString(k) < MinMergeKeyLength {
			continue
		}
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best == "" {
		return key, false
	}
	return best, true
}

// Tokenize lowercases a description, replaces punctuation with spaces and
// returns the first tokens that are at least three characters long and not
// purely numeric.
func Tokenize(description string) []string {
	if description == "" {
		return nil
	}
	cleaned := nonAlnum.ReplaceAllString(strings.ToLower(description), " ")

	tokens := make([]string, 0, MaxTokensPerRow)
	for _, t := range strings.Fields(cleaned) {
		if len(t) < MinTokenLength || isDigits(t) {
			continue
		}
		tokens = append(tokens, t)
		if len(tokens) == MaxTokensPerRow {
			break
		}
	}
	return tokens
}

func countTokens(tokens []string) (map[string]int, []string) {
	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	return counts, order
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
