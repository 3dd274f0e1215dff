package service

import (
	"context"

	"github.com/contractflow/contractflow/internal/domain/contract"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/types"
)

// EventSubscriber registers inbound handlers. The event gateway implements it.
type EventSubscriber interface {
	Subscribe(routingKey string, eventName types.ContractEventName, handler gateway.Handler) error
}

// ContractEventHandler turns inbound gateway envelopes into contract operations
type ContractEventHandler struct {
	ServiceParams
	fsm       ContractFSMService
	contracts ContractService
}

func NewContractEventHandler(params ServiceParams, fsm ContractFSMService, contracts ContractService) *ContractEventHandler {
	return &ContractEventHandler{ServiceParams: params, fsm: fsm, contracts: contracts}
}

// RegisterHandlers fills the gateway's dispatch table
func (h *ContractEventHandler) RegisterHandlers(sub EventSubscriber) error {
	routes := h.Config.Routing
	subscriptions := []struct {
		routingKey string
		eventName  types.ContractEventName
		handler    gateway.Handler
	}{
		{routes.PaymentResult, types.EventPaymentContract, h.applyEvent},
		{routes.ArrivalDate, types.EventContractTimeoutExpire, h.applyEvent},
		{routes.ArrivalDate, types.EventRegisterArrivalDate, h.applyEvent},
		{routes.FSMCommand, types.EventFirstActiveContract, h.applyEvent},
		{routes.FSMCommand, types.EventUnRegister, h.applyEvent},
		{routes.FSMCommand, types.EventTerminateContract, h.applyEvent},
		{routes.AccountRecharge, types.EventAccountRecharge, h.accountRecharge},
	}

	for _, s := range subscriptions {
		if err := sub.Subscribe(s.routingKey, s.eventName, s.handler); err != nil {
			return err
		}
	}
	return nil
}

func (h *ContractEventHandler) applyEvent(ctx context.Context, env *gateway.Envelope) error {
	if env.ContractID == "" {
		return ierr.NewError("contract id is required").
			WithHintf("%s must carry a contractId", env.EventName).
			Mark(ierr.ErrValidation)
	}

	e := contract.NewEvent(env.EventName, env.ContractID, env.DedupeKey, env.Payload)
	_, err := h.fsm.Apply(ctx, env.ContractID, e)
	return err
}

func (h *ContractEventHandler) accountRecharge(ctx context.Context, env *gateway.Envelope) error {
	_, err := h.contracts.HandleAccountRecharge(ctx, env.PartyID, env.DedupeKey)
	return err
}
