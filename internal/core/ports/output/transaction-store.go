package ports

import (
	"context"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// TransactionStore holds the raw transactions the training jobs consume.
// The serving API only reads from it (the /data preview endpoint).
type TransactionStore interface {
	Recent(ctx context.Context, limit int) ([]*domain.Transaction, error)
	InsertBatch(ctx context.Context, rows []*domain.Transaction) error
	Close() error
}
