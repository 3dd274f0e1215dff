package types

import (
	"strings"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/samber/lo"
)

// ContractEventName is the closed set of event kinds the contract service
// understands. The value doubles as the eventName header on the transport.
type ContractEventName string

const (
	EventInitContractFsm            ContractEventName = "initContractFsm"
	EventFirstActiveContract        ContractEventName = "firstActiveContractEvent"
	EventPaymentContract            ContractEventName = "paymentContractEvent"
	EventTryPaymentContract         ContractEventName = "tryPaymentContractEvent"
	EventContractTimeoutExpire      ContractEventName = "contractTimeoutExpireEvent"
	EventRegisterArrivalDate        ContractEventName = "registerArrivalDateEvent"
	EventUnRegister                 ContractEventName = "unRegisterEvent"
	EventTerminateContract          ContractEventName = "terminateContractEvent"
	EventAccountRecharge            ContractEventName = "accountRechargeEvent"
	EventRegisterArrivalDateRequest ContractEventName = "registerEvent"
)

// ContractFSMEvents lists the events that drive the contract state machine
var ContractFSMEvents = []ContractEventName{
	EventInitContractFsm,
	EventFirstActiveContract,
	EventPaymentContract,
	EventTryPaymentContract,
	EventContractTimeoutExpire,
	EventRegisterArrivalDate,
	EventUnRegister,
	EventTerminateContract,
}

func (e ContractEventName) String() string {
	return string(e)
}

// IsFSMEvent reports whether the event is applied by the contract state machine
func (e ContractEventName) IsFSMEvent() bool {
	return lo.Contains(ContractFSMEvents, e)
}

func (e ContractEventName) Validate() error {
	if e.IsFSMEvent() || e == EventAccountRecharge {
		return nil
	}
	allowed := lo.Map(ContractFSMEvents, func(e ContractEventName, _ int) string { return string(e) })
	return ierr.NewError("unknown contract event").
		WithHintf("Event name must be one of: %s", strings.Join(allowed, ", ")).
		WithReportableDetails(map[string]any{"event_name": string(e)}).
		Mark(ierr.ErrValidation)
}

// TransitionOutcome records what happened when an event was offered to a contract
type TransitionOutcome string

const (
	TransitionOutcomeApplied   TransitionOutcome = "APPLIED"
	TransitionOutcomeDuplicate TransitionOutcome = "DUPLICATE"
	TransitionOutcomeRejected  TransitionOutcome = "REJECTED"
	TransitionOutcomeFailed    TransitionOutcome = "FAILED"
)

func (o TransitionOutcome) String() string {
	return string(o)
}
