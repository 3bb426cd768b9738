package engine

import (
	"context"

	"github.com/Veraticus/bankcat/internal/model"
)

// Learner reinforces the learning tables from a freshly committed period.
type Learner interface {
	Learn(ctx context.Context, clientID int64, txns []model.CommittedTransaction) error
}

// ProgressFunc is called after each row is scored with the number of rows
// done so far and the total. It may be called from several goroutines.
type ProgressFunc func(done, total int)
