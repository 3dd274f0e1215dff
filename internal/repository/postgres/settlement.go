package postgres

import (
	"context"
	"database/sql"

	"github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/postgres"
	"github.com/contractflow/contractflow/internal/types"
)

type settlementRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSettlementRepository(db *postgres.DB, logger *logger.Logger) settlement.Repository {
	return &settlementRepository{db: db, logger: logger}
}

// dueCondition binds $1..$5 to the window filter and date range
const dueCondition = `
	contract_status = $1
	AND cycle_type = $2
	AND next_settlement_date >= $3
	AND next_settlement_date < $4
	AND status = $5`

func windowArgs(w settlement.Window) []interface{} {
	return []interface{}{
		w.Filter.ContractStatus,
		w.Filter.CycleType,
		w.StartDate,
		w.EndDate,
		types.StatusPublished,
	}
}

func (r *settlementRepository) GetMinMaxSeqID(ctx context.Context, w settlement.Window) (int64, int64, bool, error) {
	query := `SELECT MIN(seq_id), MAX(seq_id) FROM contracts WHERE ` + dueCondition

	var minSeq, maxSeq sql.NullInt64
	err := r.db.GetQuerier(ctx).QueryRowxContext(ctx, query, windowArgs(w)...).Scan(&minSeq, &maxSeq)
	if err != nil {
		return 0, 0, false, wrapError(err, "Failed to compute settlement bounds", map[string]any{
			"start_date": w.StartDate,
			"end_date":   w.EndDate,
		})
	}
	if !minSeq.Valid || !maxSeq.Valid {
		return 0, 0, false, nil
	}
	return minSeq.Int64, maxSeq.Int64, true, nil
}

func (r *settlementRepository) GetSettlementRecords(
	ctx context.Context,
	w settlement.Window,
	fromSeqID, toSeqID int64,
	limit int,
) ([]*settlement.Record, error) {
	query := `
	SELECT id, seq_id, party_one, party_two, next_settlement_date, settlement_amount, currency
	FROM contracts
	WHERE ` + dueCondition + `
		AND seq_id >= $6
		AND seq_id <= $7
	ORDER BY seq_id ASC
	LIMIT $8`

	args := append(windowArgs(w), fromSeqID, toSeqID, limit)

	var records []*settlement.Record
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		return nil, wrapError(err, "Failed to fetch settlement records", map[string]any{
			"from_seq_id": fromSeqID,
			"to_seq_id":   toSeqID,
		})
	}
	return records, nil
}
