package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/bankcat/internal/model"
)

// Vendor memory confidence bookkeeping.
const (
	VendorMemoryInitialConfidence = 0.50
	VendorMemoryConfidenceStep    = 0.05
	VendorMemoryMaxConfidence     = 0.99
)

// ListVendorMemory returns a client's vendor memory, most confident first.
func (s *SQLiteStorage) ListVendorMemory(ctx context.Context, clientID int64) ([]model.VendorMemoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, vendor_key, category, confidence, times_confirmed, last_seen
		FROM vendor_memory
		WHERE client_id = ?
		ORDER BY confidence DESC, times_confirmed DESC, vendor_key
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.VendorMemoryEntry
	for rows.Next() {
		var e model.VendorMemoryEntry
		if err := rows.Scan(&e.ClientID, &e.VendorKey, &e.Category, &e.Confidence, &e.TimesConfirmed, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan vendor memory: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendor memory: %w", err)
	}
	return entries, nil
}

// ListKeywordWeights returns a client's keyword weights, heaviest first.
func (s *SQLiteStorage) ListKeywordWeights(ctx context.Context, clientID int64) ([]model.KeywordWeight, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, token, category, weight, times_used, updated_at
		FROM keyword_weights
		WHERE client_id = ?
		ORDER BY weight DESC, token, category
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword weights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var weights []model.KeywordWeight
	for rows.Next() {
		var w model.KeywordWeight
		if err := rows.Scan(&w.ClientID, &w.Token, &w.Category, &w.Weight, &w.TimesUsed, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword weight: %w", err)
		}
		weights = append(weights, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword weights: %w", err)
	}
	return weights, nil
}

// SetVendorMemory seeds or overwrites one vendor memory entry.
func (s *SQLiteStorage) SetVendorMemory(ctx context.Context, entry model.VendorMemoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(entry.ClientID, "client_id"); err != nil {
		return err
	}
	if err := validateString(entry.VendorKey, "vendor_key"); err != nil {
		return err
	}
	if err := validateString(entry.Category, "category"); err != nil {
		return err
	}
	if entry.Confidence <= 0 || entry.Confidence > 1 {
		entry.Confidence = VendorMemoryInitialConfidence
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_memory (client_id, vendor_key, category, confidence, times_confirmed, last_seen)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(client_id, vendor_key) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen
	`, entry.ClientID, normalizeKey(entry.VendorKey), entry.Category, entry.Confidence, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set vendor memory: %w", err)
	}
	return nil
}

// SetKeywordWeight seeds or overwrites one keyword weight.
func (s *SQLiteStorage) SetKeywordWeight(ctx context.Context, weight model.KeywordWeight) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(weight.ClientID, "client_id"); err != nil {
		return err
	}
	if err := validateString(weight.Token, "token"); err != nil {
		return err
	}
	if err := validateString(weight.Category, "category"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO keyword_weights (client_id, token, category, weight, times_used, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(client_id, token, category) DO UPDATE SET
			weight = excluded.weight,
			updated_at = excluded.updated_at
	`, weight.ClientID, normalizeKey(weight.Token), weight.Category, weight.Weight, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set keyword weight: %w", err)
	}
	return nil
}

// ApplyLearning applies a learning batch in one transaction. Confirmed vendors
// start at the initial confidence and gain one step per confirmation up to the
// cap; their category follows the latest decision. Keyword deltas accumulate.
func (s *SQLiteStorage) ApplyLearning(ctx context.Context, batch model.LearningBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(batch.ClientID, "client_id"); err != nil {
		return err
	}
	if batch.IsEmpty() {
		return nil
	}

	seen := batch.SeenAt
	if seen.IsZero() {
		seen = time.Now()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, v := range batch.Vendors {
			key := normalizeKey(v.VendorKey)
			if key == "" || strings.TrimSpace(v.Category) == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO vendor_memory (client_id, vendor_key, category, confidence, times_confirmed, last_seen)
				VALUES (?, ?, ?, ?, 1, ?)
				ON CONFLICT(client_id, vendor_key) DO UPDATE SET
					category = excluded.category,
					confidence = MIN(?, vendor_memory.confidence + ?),
					times_confirmed = vendor_memory.times_confirmed + 1,
					last_seen = excluded.last_seen
			`, batch.ClientID, key, v.Category, VendorMemoryInitialConfidence, seen,
				VendorMemoryMaxConfidence, VendorMemoryConfidenceStep); err != nil {
				return fmt.Errorf("failed to upsert vendor memory %q: %w", key, err)
			}
		}

		for _, k := range batch.Keywords {
			token := normalizeKey(k.Token)
			if token == "" || strings.TrimSpace(k.Category) == "" || k.Delta == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO keyword_weights (client_id, token, category, weight, times_used, updated_at)
				VALUES (?, ?, ?, ?, 1, ?)
				ON CONFLICT(client_id, token, category) DO UPDATE SET
					weight = keyword_weights.weight + excluded.weight,
					times_used = keyword_weights.times_used + 1,
					updated_at = excluded.updated_at
			`, batch.ClientID, token, k.Category, k.Delta, seen); err != nil {
				return fmt.Errorf("failed to upsert keyword weight %q: %w", token, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("applied learning batch",
		"client_id", batch.ClientID,
		"vendors", len(batch.Vendors),
		"keywords", len(batch.Keywords))
	return nil
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
