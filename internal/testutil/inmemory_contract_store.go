package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

// InMemoryContractStore stores copies so callers never share state with the store
type InMemoryContractStore struct {
	*InMemoryStore[*contract.Contract]

	seqMu sync.Mutex
	seq   int64

	// UpdateErr, when set, fails every UpdateStatus call
	UpdateErr error
}

func NewInMemoryContractStore() *InMemoryContractStore {
	return &InMemoryContractStore{
		InMemoryStore: NewInMemoryStore[*contract.Contract](),
	}
}

func (s *InMemoryContractStore) Create(ctx context.Context, c *contract.Contract) error {
	if c == nil {
		return ierr.NewError("contract cannot be nil").Mark(ierr.ErrValidation)
	}

	s.seqMu.Lock()
	if c.SeqID == 0 {
		s.seq++
		c.SeqID = s.seq
	} else if c.SeqID > s.seq {
		s.seq = c.SeqID
	}
	s.seqMu.Unlock()

	return s.InMemoryStore.Create(ctx, c.ID, c.Clone())
}

func (s *InMemoryContractStore) Get(ctx context.Context, id string) (*contract.Contract, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// GetForUpdate does not need a transaction; the FSM's keyed lock is the only serialization in tests
func (s *InMemoryContractStore) GetForUpdate(ctx context.Context, id string) (*contract.Contract, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryContractStore) UpdateStatus(ctx context.Context, c *contract.Contract) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}

	stored, err := s.InMemoryStore.Get(ctx, c.ID)
	if err != nil {
		return err
	}

	updated := stored.Clone()
	updated.ContractStatus = c.ContractStatus
	updated.NextSettlementDate = c.Clone().NextSettlementDate
	updated.FirstActivatedAt = c.Clone().FirstActivatedAt
	updated.UpdatedAt = time.Now().UTC()
	updated.UpdatedBy = types.GetUserID(ctx)
	return s.InMemoryStore.Update(ctx, c.ID, updated)
}

func (s *InMemoryContractStore) ListDueByParty(ctx context.Context, partyID string, asOf time.Time) ([]*contract.Contract, error) {
	due := s.InMemoryStore.List(ctx,
		func(_ context.Context, c *contract.Contract) bool {
			return c.PartyOne == partyID &&
				(c.ContractStatus == types.ContractStatusActive || c.ContractStatus == types.ContractStatusPendingPayment) &&
				c.CycleType == types.CycleTypeRecurring &&
				c.NextSettlementDate != nil &&
				!c.NextSettlementDate.After(asOf)
		},
		bySeqID,
	)
	return cloneContracts(due), nil
}

// SetStatus overwrites the stored status, for arranging test fixtures
func (s *InMemoryContractStore) SetStatus(ctx context.Context, id string, status types.ContractStatus) error {
	stored, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	updated := stored.Clone()
	updated.ContractStatus = status
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemoryContractStore) Clear() {
	s.InMemoryStore.Clear()
	s.seqMu.Lock()
	s.seq = 0
	s.seqMu.Unlock()
	s.UpdateErr = nil
}

func bySeqID(a, b *contract.Contract) bool {
	return a.SeqID < b.SeqID
}

func cloneContracts(in []*contract.Contract) []*contract.Contract {
	out := make([]*contract.Contract, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
