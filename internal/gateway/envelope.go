package gateway

import (
	"time"

	"github.com/contractflow/contractflow/internal/types"
)

// HeaderEventName is the metadata header that selects the handler for a message
const HeaderEventName = "eventName"

// Envelope is the JSON body every inbound and outbound message carries
type Envelope struct {
	EventName  types.ContractEventName `json:"eventName" validate:"required,contract_event"`
	ContractID string                  `json:"contractId,omitempty"`
	PartyID    string                  `json:"partyId,omitempty"`
	DedupeKey  string                  `json:"dedupeKey,omitempty"`
	Payload    map[string]any          `json:"payload,omitempty"`
	SentAt     time.Time               `json:"sentAt"`
}
