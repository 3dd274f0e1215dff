package service

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/types"
)

// ArrivalDateRegisterType is the event center's code for a one-shot date trigger
const ArrivalDateRegisterType = 1

// EventRegistrar registers and cancels the expiry timer of a contract with the event center
type EventRegistrar interface {
	RegisterArrivalDate(ctx context.Context, c *contract.Contract) error
	Unregister(ctx context.Context, c *contract.Contract) error
}

type eventRegistrar struct {
	ServiceParams
}

func NewEventRegistrar(params ServiceParams) EventRegistrar {
	return &eventRegistrar{ServiceParams: params}
}

// RegisterArrivalDate asks the event center to send contractTimeoutExpireEvent
// back on the arrival date routing key once the contract's expire date passes
func (r *eventRegistrar) RegisterArrivalDate(ctx context.Context, c *contract.Contract) error {
	body := gateway.Envelope{
		EventName:  types.EventRegisterArrivalDateRequest,
		ContractID: c.ID,
		Payload: map[string]any{
			"eventRegisterType":  ArrivalDateRegisterType,
			"triggerDate":        c.ExpireDate.UTC().Format(time.RFC3339),
			"callbackRoutingKey": r.Config.Routing.ArrivalDate,
			"callbackEventName":  types.EventContractTimeoutExpire,
		},
		SentAt: time.Now().UTC(),
	}

	if err := r.Publisher.Publish(ctx, r.Config.Routing.RegisterArrivalDate, types.EventRegisterArrivalDateRequest, body); err != nil {
		return err
	}

	r.Logger.Debugw("registered contract arrival date",
		"contract_id", c.ID,
		"expire_date", c.ExpireDate,
	)
	return nil
}

func (r *eventRegistrar) Unregister(ctx context.Context, c *contract.Contract) error {
	body := gateway.Envelope{
		EventName:  types.EventUnRegister,
		ContractID: c.ID,
		Payload: map[string]any{
			"eventRegisterType": ArrivalDateRegisterType,
		},
		SentAt: time.Now().UTC(),
	}

	if err := r.Publisher.Publish(ctx, r.Config.Routing.Unregister, types.EventUnRegister, body); err != nil {
		return err
	}

	r.Logger.Debugw("unregistered contract arrival date", "contract_id", c.ID)
	return nil
}
