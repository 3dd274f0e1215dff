package contract

import (
	"context"
	"time"
)

// Repository defines the interface for contract persistence
type Repository interface {
	// Create stores a new contract and assigns its SeqID
	Create(ctx context.Context, contract *Contract) error
	Get(ctx context.Context, id string) (*Contract, error)
	// GetForUpdate reads the contract and holds its row lock until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id string) (*Contract, error)
	// UpdateStatus persists the lifecycle columns the FSM owns
	UpdateStatus(ctx context.Context, contract *Contract) error
	// ListDueByParty returns a party's recurring contracts due on or before asOf
	// that are active or still waiting on a payment result
	ListDueByParty(ctx context.Context, partyID string, asOf time.Time) ([]*Contract, error)
}
