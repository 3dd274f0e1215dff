package testutil

import (
	"context"
	"sync/atomic"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
)

// InMemorySettlementStore answers settlement scans from the contract store
type InMemorySettlementStore struct {
	contracts *InMemoryContractStore

	// Err, when set, fails every call
	Err error

	pageQueries atomic.Int64
}

func NewInMemorySettlementStore(contracts *InMemoryContractStore) *InMemorySettlementStore {
	return &InMemorySettlementStore{contracts: contracts}
}

func (s *InMemorySettlementStore) GetMinMaxSeqID(ctx context.Context, window settlement.Window) (int64, int64, bool, error) {
	if s.Err != nil {
		return 0, 0, false, s.Err
	}

	due := s.due(ctx, window)
	if len(due) == 0 {
		return 0, 0, false, nil
	}
	return due[0].SeqID, due[len(due)-1].SeqID, true, nil
}

func (s *InMemorySettlementStore) GetSettlementRecords(ctx context.Context, window settlement.Window, fromSeqID, toSeqID int64, limit int) ([]*settlement.Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.pageQueries.Add(1)

	records := make([]*settlement.Record, 0, limit)
	for _, c := range s.due(ctx, window) {
		if c.SeqID < fromSeqID || c.SeqID > toSeqID {
			continue
		}
		if len(records) == limit {
			break
		}
		records = append(records, settlement.RecordFromContract(c))
	}
	return records, nil
}

// PageQueries counts GetSettlementRecords calls
func (s *InMemorySettlementStore) PageQueries() int64 {
	return s.pageQueries.Load()
}

func (s *InMemorySettlementStore) Clear() {
	s.Err = nil
	s.pageQueries.Store(0)
}

func (s *InMemorySettlementStore) due(ctx context.Context, window settlement.Window) []*contract.Contract {
	return s.contracts.InMemoryStore.List(ctx,
		func(_ context.Context, c *contract.Contract) bool {
			return window.Contains(c)
		},
		bySeqID,
	)
}
