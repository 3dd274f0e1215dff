package dto

import (
	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/contractflow/contractflow/internal/validator"
	"github.com/samber/lo"
)

type ContractResponse struct {
	*contract.Contract
}

func ToContractResponse(c *contract.Contract) *ContractResponse {
	return &ContractResponse{Contract: c}
}

type ChangeHistoryResponse struct {
	ContractID string                         `json:"contract_id"`
	Items      []*changehistory.ChangeHistory `json:"items"`
	Total      int                            `json:"total"`
}

func ToChangeHistoryResponse(contractID string, items []*changehistory.ChangeHistory) *ChangeHistoryResponse {
	if items == nil {
		items = make([]*changehistory.ChangeHistory, 0)
	}
	return &ChangeHistoryResponse{ContractID: contractID, Items: items, Total: len(items)}
}

type ReplayEventRequest struct {
	EventName string         `json:"event_name" validate:"required,contract_event"`
	DedupeKey string         `json:"dedupe_key,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ReplayRequest lists the events to walk through the state machine, in order
type ReplayRequest struct {
	Events []ReplayEventRequest `json:"events" validate:"required,min=1,dive"`
}

func (r *ReplayRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *ReplayRequest) ToEvents(contractID string) []*contract.Event {
	return lo.Map(r.Events, func(e ReplayEventRequest, _ int) *contract.Event {
		return contract.NewEvent(types.ContractEventName(e.EventName), contractID, e.DedupeKey, e.Payload)
	})
}

type TriggerSettlementResponse struct {
	Started  bool  `json:"started"`
	InFlight bool  `json:"in_flight"`
	Cycles   int64 `json:"cycles"`
	Skipped  int64 `json:"skipped"`
}
