package changehistory

import "context"

// Repository stores change history. Entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entry *ChangeHistory) error
	// HasApplied reports whether an Applied entry exists for the contract and dedupe key
	HasApplied(ctx context.Context, contractID, dedupeKey string) (bool, error)
	// ListByContract returns entries oldest first
	ListByContract(ctx context.Context, contractID string) ([]*ChangeHistory, error)
}
