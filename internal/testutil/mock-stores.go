package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// MockTransactionStore is a mock of ports.TransactionStore.
type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Recent(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionStore) InsertBatch(ctx context.Context, rows []*domain.Transaction) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockTransactionStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
