package model

import "time"

// VendorMemoryEntry is a previously confirmed vendor to category mapping for a client.
type VendorMemoryEntry struct {
	LastSeen       time.Time
	VendorKey      string
	Category       string
	ClientID       int64
	Confidence     float64
	TimesConfirmed int
}

// KeywordWeight associates a description token with a category for a client.
type KeywordWeight struct {
	UpdatedAt time.Time
	Token     string
	Category  string
	ClientID  int64
	Weight    float64
	TimesUsed int
}

// VendorObservation is one reviewer-confirmed vendor to category decision.
type VendorObservation struct {
	VendorKey string
	Category  string
}

// KeywordObservation adds Delta to the weight of a token for a category.
type KeywordObservation struct {
	Token    string
	Category string
	Delta    float64
}

// LearningBatch is the set of learning-table updates derived from one commit.
type LearningBatch struct {
	SeenAt   time.Time
	Vendors  []VendorObservation
	Keywords []KeywordObservation
	ClientID int64
}

// IsEmpty reports whether the batch carries no updates.
func (b LearningBatch) IsEmpty() bool {
	return len(b.Vendors) == 0 && len(b.Keywords) == 0
}
