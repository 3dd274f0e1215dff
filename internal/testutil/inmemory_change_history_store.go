package testutil

import (
	"context"
	"sync"

	"github.com/contractflow/contractflow/internal/domain/changehistory"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

// InMemoryChangeHistoryStore keeps entries in append order and enforces the
// unique applied dedupe key the postgres index enforces
type InMemoryChangeHistoryStore struct {
	mu      sync.RWMutex
	entries []*changehistory.ChangeHistory

	// AppendErr, when set, fails every Append call
	AppendErr error
}

func NewInMemoryChangeHistoryStore() *InMemoryChangeHistoryStore {
	return &InMemoryChangeHistoryStore{}
}

func (s *InMemoryChangeHistoryStore) Append(ctx context.Context, entry *changehistory.ChangeHistory) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Outcome == types.TransitionOutcomeApplied && entry.DedupeKey != "" {
		for _, e := range s.entries {
			if e.ContractID == entry.ContractID &&
				e.DedupeKey == entry.DedupeKey &&
				e.Outcome == types.TransitionOutcomeApplied {
				return ierr.NewError("applied entry already exists").
					WithReportableDetails(map[string]any{
						"contract_id": entry.ContractID,
						"dedupe_key":  entry.DedupeKey,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemoryChangeHistoryStore) HasApplied(ctx context.Context, contractID, dedupeKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ContractID == contractID && e.DedupeKey == dedupeKey && e.Outcome == types.TransitionOutcomeApplied {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryChangeHistoryStore) ListByContract(ctx context.Context, contractID string) ([]*changehistory.ChangeHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*changehistory.ChangeHistory, 0)
	for _, e := range s.entries {
		if e.ContractID == contractID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len returns the number of entries across all contracts
func (s *InMemoryChangeHistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryChangeHistoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.AppendErr = nil
}
