package settlement

import "context"

// Repository reads the settlement backlog. It never writes.
type Repository interface {
	// GetMinMaxSeqID returns the seq id bounds of contracts due in the window.
	// found is false when no contract matches.
	GetMinMaxSeqID(ctx context.Context, window Window) (min int64, max int64, found bool, err error)
	// GetSettlementRecords returns up to limit due records with seq id in
	// [fromSeqID, toSeqID], ascending by seq id
	GetSettlementRecords(ctx context.Context, window Window, fromSeqID, toSeqID int64, limit int) ([]*Record, error)
}
