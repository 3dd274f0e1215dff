package changehistory

import (
	"time"

	"github.com/contractflow/contractflow/internal/types"
)

// ChangeHistory is an append-only record of one event offered to a contract
type ChangeHistory struct {
	ID         string                  `db:"id" json:"id"`
	ContractID string                  `db:"contract_id" json:"contract_id"`
	FromState  types.ContractStatus    `db:"from_state" json:"from_state"`
	ToState    types.ContractStatus    `db:"to_state" json:"to_state"`
	EventName  types.ContractEventName `db:"event_name" json:"event_name"`
	DedupeKey  string                  `db:"dedupe_key" json:"dedupe_key,omitempty"`
	Outcome    types.TransitionOutcome `db:"outcome" json:"outcome"`
	Reason     string                  `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time               `db:"created_at" json:"created_at"`
}

func New(
	contractID string,
	from, to types.ContractStatus,
	event types.ContractEventName,
	dedupeKey string,
	outcome types.TransitionOutcome,
	reason string,
) *ChangeHistory {
	return &ChangeHistory{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHANGE_HISTORY),
		ContractID: contractID,
		FromState:  from,
		ToState:    to,
		EventName:  event,
		DedupeKey:  dedupeKey,
		Outcome:    outcome,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}
