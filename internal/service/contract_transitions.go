package service

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/samber/lo"
)

// mutation updates the in-memory contract for a transition. It must not talk
// to anything outside the process.
type mutation func(c *contract.Contract, e *contract.Event, now time.Time) error

// sideEffect publishes what a transition tells the rest of the system. It
// runs inside the transaction, before the new status commits.
type sideEffect func(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error

type transition struct {
	// from lists the statuses the event is legal in, nil means every non-terminal status
	from []types.ContractStatus
	// to is the resulting status, nil leaves the status unchanged
	to     *types.ContractStatus
	mutate mutation
	effect sideEffect
}

var contractTransitions = map[types.ContractEventName]transition{
	types.EventInitContractFsm: {
		from:   []types.ContractStatus{types.ContractStatusCreated},
		to:     lo.ToPtr(types.ContractStatusActive),
		mutate: markFirstActivated,
		effect: func(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error {
			if err := s.registrar.RegisterArrivalDate(ctx, c); err != nil {
				return err
			}
			return publishEffectiveNotice(ctx, s, c)
		},
	},
	types.EventFirstActiveContract: {
		from:   []types.ContractStatus{types.ContractStatusCreated},
		to:     lo.ToPtr(types.ContractStatusActive),
		mutate: markFirstActivated,
		effect: func(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error {
			return publishEffectiveNotice(ctx, s, c)
		},
	},
	// PendingPayment re-publishes the charge after an account recharge
	types.EventTryPaymentContract: {
		from:   []types.ContractStatus{types.ContractStatusActive, types.ContractStatusPendingPayment},
		to:     lo.ToPtr(types.ContractStatusPendingPayment),
		effect: publishTryPayment,
	},
	// Active is accepted as a source so a payment result that races a try
	// payment whose status never committed still settles the cycle
	types.EventPaymentContract: {
		from: []types.ContractStatus{types.ContractStatusPendingPayment, types.ContractStatusActive},
		to:   lo.ToPtr(types.ContractStatusActive),
		mutate: func(c *contract.Contract, e *contract.Event, now time.Time) error {
			return c.AdvanceSettlementDate()
		},
	},
	types.EventContractTimeoutExpire: {
		from:   []types.ContractStatus{types.ContractStatusActive, types.ContractStatusPendingPayment},
		to:     lo.ToPtr(types.ContractStatusExpired),
		effect: unregisterArrivalDate,
	},
	types.EventTerminateContract: {
		from:   []types.ContractStatus{types.ContractStatusCreated, types.ContractStatusActive, types.ContractStatusPendingPayment},
		to:     lo.ToPtr(types.ContractStatusTerminated),
		effect: unregisterArrivalDate,
	},
	types.EventUnRegister: {
		effect: unregisterArrivalDate,
	},
	types.EventRegisterArrivalDate: {
		effect: func(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error {
			s.Logger.Infow("event center confirmed arrival date registration",
				"contract_id", c.ID,
				"expire_date", c.ExpireDate,
			)
			return nil
		},
	},
}

// resolveTransition finds the row for event out of status. ok is false when the
// event is not legal from status.
func resolveTransition(status types.ContractStatus, event types.ContractEventName) (transition, bool) {
	if status.IsTerminal() {
		return transition{}, false
	}
	t, ok := contractTransitions[event]
	if !ok {
		return transition{}, false
	}
	if t.from != nil && !lo.Contains(t.from, status) {
		return transition{}, false
	}
	return t, true
}

// target is the status the contract ends in when t applies from status
func (t transition) target(status types.ContractStatus) types.ContractStatus {
	if t.to == nil {
		return status
	}
	return *t.to
}

func markFirstActivated(c *contract.Contract, e *contract.Event, now time.Time) error {
	if c.FirstActivatedAt == nil {
		c.FirstActivatedAt = lo.ToPtr(now)
	}
	return nil
}

// publishEffectiveNotice tells the auth service a presentable contract became effective
func publishEffectiveNotice(ctx context.Context, s *contractFSMService, c *contract.Contract) error {
	if c.ContractType != types.ContractTypePresentableToUser {
		return nil
	}
	body := gateway.Envelope{
		EventName:  types.EventFirstActiveContract,
		ContractID: c.ID,
		PartyID:    c.PartyTwo,
		Payload: map[string]any{
			"presentableId": c.TargetID,
			"nodeId":        c.PartyOne,
			"userId":        c.PartyTwo,
		},
		SentAt: time.Now().UTC(),
	}
	return s.Publisher.Publish(ctx, s.Config.Routing.ActiveContract, types.EventFirstActiveContract, body)
}

// publishTryPayment asks the payment subsystem to charge one billing cycle. The
// settlement key travels as the envelope dedupe key and comes back on the payment result.
func publishTryPayment(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error {
	payload := map[string]any{
		"payer":    c.PartyOne,
		"payee":    c.PartyTwo,
		"amount":   c.SettlementAmount.String(),
		"currency": c.Currency,
	}
	if c.NextSettlementDate != nil {
		payload["settlementDate"] = c.NextSettlementDate.UTC().Format(time.DateOnly)
	}
	for k, v := range e.Payload {
		payload[k] = v
	}

	settlementKey, _ := payload[PayloadSettlementKey].(string)
	if settlementKey == "" {
		settlementKey = e.DedupeKey
	}

	body := gateway.Envelope{
		EventName:  types.EventTryPaymentContract,
		ContractID: c.ID,
		PartyID:    c.PartyOne,
		DedupeKey:  settlementKey,
		Payload:    payload,
		SentAt:     time.Now().UTC(),
	}
	return s.Publisher.Publish(ctx, s.Config.Routing.TryPayment, types.EventTryPaymentContract, body)
}

func unregisterArrivalDate(ctx context.Context, s *contractFSMService, c *contract.Contract, e *contract.Event) error {
	return s.registrar.Unregister(ctx, c)
}
