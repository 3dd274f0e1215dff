package postgres

import (
	"context"

	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/postgres"
	"github.com/contractflow/contractflow/internal/types"
)

type changeHistoryRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChangeHistoryRepository(db *postgres.DB, logger *logger.Logger) changehistory.Repository {
	return &changeHistoryRepository{db: db, logger: logger}
}

func (r *changeHistoryRepository) Append(ctx context.Context, h *changehistory.ChangeHistory) error {
	query := `
	INSERT INTO contract_change_history (
		id, contract_id, from_state, to_state, event_name, dedupe_key, outcome, reason, created_at
	) VALUES (
		:id, :contract_id, :from_state, :to_state, :event_name, :dedupe_key, :outcome, :reason, :created_at
	)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, h); err != nil {
		// the partial unique index turns a lost dedupe race into ErrAlreadyExists
		return wrapError(err, "Failed to append change history", map[string]any{
			"contract_id": h.ContractID,
			"event_name":  h.EventName,
		})
	}
	return nil
}

func (r *changeHistoryRepository) HasApplied(ctx context.Context, contractID, dedupeKey string) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM contract_change_history
		WHERE contract_id = $1 AND dedupe_key = $2 AND outcome = $3
	)
	`

	var exists bool
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &exists, query, contractID, dedupeKey, types.TransitionOutcomeApplied); err != nil {
		return false, wrapError(err, "Failed to check change history", map[string]any{"contract_id": contractID})
	}
	return exists, nil
}

func (r *changeHistoryRepository) ListByContract(ctx context.Context, contractID string) ([]*changehistory.ChangeHistory, error) {
	query := `
	SELECT id, contract_id, from_state, to_state, event_name, dedupe_key, outcome, reason, created_at
	FROM contract_change_history
	WHERE contract_id = $1
	ORDER BY created_at ASC, id ASC
	`

	var entries []*changehistory.ChangeHistory
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, query, contractID); err != nil {
		return nil, wrapError(err, "Failed to list change history", map[string]any{"contract_id": contractID})
	}
	return entries, nil
}
