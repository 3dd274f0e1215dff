package postgres

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/postgres"
	"github.com/contractflow/contractflow/internal/types"
)

const contractColumns = `
	seq_id, id, party_one, party_two, contract_type, target_id, resource_id, segment_id,
	expire_date, contract_status, cycle_type, settlement_period, settlement_period_unit,
	next_settlement_date, settlement_amount, currency, first_activated_at,
	status, created_at, updated_at, created_by, updated_by`

type contractRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewContractRepository(db *postgres.DB, logger *logger.Logger) contract.Repository {
	return &contractRepository{db: db, logger: logger}
}

func (r *contractRepository) Create(ctx context.Context, c *contract.Contract) error {
	query := `
	INSERT INTO contracts (
		id, party_one, party_two, contract_type, target_id, resource_id, segment_id,
		expire_date, contract_status, cycle_type, settlement_period, settlement_period_unit,
		next_settlement_date, settlement_amount, currency, first_activated_at,
		status, created_at, updated_at, created_by, updated_by
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
	)
	RETURNING seq_id
	`

	err := r.db.GetQuerier(ctx).QueryRowxContext(ctx, query,
		c.ID,
		c.PartyOne,
		c.PartyTwo,
		c.ContractType,
		c.TargetID,
		c.ResourceID,
		c.SegmentID,
		c.ExpireDate,
		c.ContractStatus,
		c.CycleType,
		c.SettlementPeriod,
		c.SettlementPeriodUnit,
		c.NextSettlementDate,
		c.SettlementAmount,
		c.Currency,
		c.FirstActivatedAt,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
		c.CreatedBy,
		c.UpdatedBy,
	).Scan(&c.SeqID)
	if err != nil {
		return wrapError(err, "Failed to create contract", map[string]any{"contract_id": c.ID})
	}
	return nil
}

func (r *contractRepository) Get(ctx context.Context, id string) (*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 AND status = $2`

	var c contract.Contract
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.StatusPublished); err != nil {
		return nil, wrapError(err, "Contract not found", map[string]any{"contract_id": id})
	}
	return &c, nil
}

func (r *contractRepository) GetForUpdate(ctx context.Context, id string) (*contract.Contract, error) {
	if _, ok := postgres.GetTx(ctx); !ok {
		return nil, ierr.NewError("row lock requested outside a transaction").
			WithHint("GetForUpdate must run inside WithTx").
			Mark(ierr.ErrSystem)
	}

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 AND status = $2 FOR UPDATE`

	var c contract.Contract
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.StatusPublished); err != nil {
		return nil, wrapError(err, "Contract not found", map[string]any{"contract_id": id})
	}
	return &c, nil
}

func (r *contractRepository) UpdateStatus(ctx context.Context, c *contract.Contract) error {
	query := `
	UPDATE contracts SET
		contract_status = $1,
		next_settlement_date = $2,
		first_activated_at = $3,
		updated_at = $4,
		updated_by = $5
	WHERE id = $6 AND status = $7
	`

	c.UpdatedAt = time.Now().UTC()
	c.UpdatedBy = types.GetUserID(ctx)

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		c.ContractStatus,
		c.NextSettlementDate,
		c.FirstActivatedAt,
		c.UpdatedAt,
		c.UpdatedBy,
		c.ID,
		types.StatusPublished,
	)
	if err != nil {
		return wrapError(err, "Failed to update contract status", map[string]any{"contract_id": c.ID})
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapError(err, "Failed to update contract status", map[string]any{"contract_id": c.ID})
	}
	if rows == 0 {
		return ierr.NewError("contract not found").
			WithHint("Contract not found").
			WithReportableDetails(map[string]any{"contract_id": c.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *contractRepository) ListDueByParty(ctx context.Context, partyID string, asOf time.Time) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + `
	FROM contracts
	WHERE party_one = $1
		AND contract_status IN ($2, $3)
		AND cycle_type = $4
		AND next_settlement_date <= $5
		AND status = $6
	ORDER BY seq_id ASC`

	var contracts []*contract.Contract
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &contracts, query,
		partyID,
		types.ContractStatusActive,
		types.ContractStatusPendingPayment,
		types.CycleTypeRecurring,
		asOf,
		types.StatusPublished,
	)
	if err != nil {
		return nil, wrapError(err, "Failed to list due contracts", map[string]any{"party_id": partyID})
	}
	return contracts, nil
}
