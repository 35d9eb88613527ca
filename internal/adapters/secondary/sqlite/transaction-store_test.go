package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

func TestTransactionStore_RoundTrip(t *testing.T) {
	store, err := NewTransactionStore(filepath.Join(t.TempDir(), "fraud.db"))
	assert.NoError(t, err)
	defer store.Close()

	batch := []*domain.Transaction{
		{Step: 1, Type: "PAYMENT", Amount: 100.0, NameOrig: "C1", NameDest: "M1"},
		{Step: 2, Type: "TRANSFER", Amount: 9500.5, NameOrig: "C2", NameDest: "C3", IsFraud: 1},
		{Step: 3, Type: "CASH_OUT", Amount: 300.0, NameOrig: "C4", NameDest: "M2"},
	}
	assert.NoError(t, store.InsertBatch(context.Background(), batch))

	rows, err := store.Recent(context.Background(), 2)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, "CASH_OUT", rows[0].Type)
	assert.Equal(t, 1, rows[1].IsFraud)
}

func TestTransactionStore_RecentDefaultLimit(t *testing.T) {
	store, err := NewTransactionStore(filepath.Join(t.TempDir(), "fraud.db"))
	assert.NoError(t, err)
	defer store.Close()

	rows, err := store.Recent(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}
