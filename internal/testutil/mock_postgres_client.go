package testutil

import (
	"context"
	"sync/atomic"

	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type mockTxKey struct{}

// MockPostgresClient runs transactional work without a database. Nested
// calls join the outer transaction like the real client does.
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	c.txs.Add(1)
	if err := fn(context.WithValue(ctx, mockTxKey{}, true)); err != nil {
		c.logger.Debugw("mock transaction rolled back", "error", err)
		return err
	}
	return nil
}

// Transactions counts the outermost transactions started
func (c *MockPostgresClient) Transactions() int64 {
	return c.txs.Load()
}

// InTx reports whether ctx runs inside a mock transaction
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(mockTxKey{}).(bool)
	return v
}
