package contract

import (
	"time"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

// Event is one message offered to a contract's state machine
type Event struct {
	Name       types.ContractEventName `json:"eventName"`
	ContractID string                  `json:"contractId"`
	Payload    map[string]any          `json:"payload,omitempty"`
	// DedupeKey identifies the logical occurrence of the event. Two events with
	// the same key for the same contract are applied at most once.
	DedupeKey  string    `json:"dedupeKey,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func NewEvent(name types.ContractEventName, contractID, dedupeKey string, payload map[string]any) *Event {
	return &Event{
		Name:       name,
		ContractID: contractID,
		Payload:    payload,
		DedupeKey:  dedupeKey,
		ReceivedAt: time.Now().UTC(),
	}
}

func (e *Event) Validate() error {
	if e == nil {
		return ierr.NewError("event is required").Mark(ierr.ErrValidation)
	}
	if !e.Name.IsFSMEvent() {
		return ierr.NewError("event is not a contract state machine event").
			WithHintf("Unknown contract event %q", e.Name).
			WithReportableDetails(map[string]any{"event_name": e.Name}).
			Mark(ierr.ErrValidation)
	}
	if e.ContractID == "" {
		return ierr.NewError("contract_id is required").
			WithHint("Event must reference a contract").
			Mark(ierr.ErrValidation)
	}
	// payment results are the one event kind that is always delivered more than once
	if e.Name == types.EventPaymentContract && e.DedupeKey == "" {
		return ierr.NewError("dedupe key is required for payment events").
			WithHint("Payment events must carry the dedupe key echoed from the payment request").
			WithReportableDetails(map[string]any{"contract_id": e.ContractID}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
