package service

import (
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/types"
)

// PayloadSettlementKey carries the billing cycle key the payment subsystem
// must echo as the dedupe key of its payment result
const PayloadSettlementKey = "settlementKey"

// TryPaymentDedupeKey keeps the try payment of a cycle apart from the payment
// result of the same cycle, which arrives under the bare settlement key
func TryPaymentDedupeKey(r *settlement.Record) string {
	return "try:" + r.DedupeKey()
}

// RechargeTryPaymentDedupeKey scopes a repeated try payment of a cycle to the
// account recharge that caused it
func RechargeTryPaymentDedupeKey(r *settlement.Record, rechargeID string) string {
	return TryPaymentDedupeKey(r) + ":recharge:" + rechargeID
}

// InitDedupeKey makes contract initialization idempotent
func InitDedupeKey(contractID string) string {
	return "init:" + contractID
}

// NewTryPaymentEvent builds the event that routes one due settlement record to the payment subsystem
func NewTryPaymentEvent(r *settlement.Record) *contract.Event {
	return newTryPaymentEvent(r, TryPaymentDedupeKey(r))
}

// NewRechargeTryPaymentEvent re-sends the try payment of a cycle that is still
// waiting on a payment result. The payment result keeps the bare settlement key.
func NewRechargeTryPaymentEvent(r *settlement.Record, rechargeID string) *contract.Event {
	return newTryPaymentEvent(r, RechargeTryPaymentDedupeKey(r, rechargeID))
}

func newTryPaymentEvent(r *settlement.Record, dedupeKey string) *contract.Event {
	return contract.NewEvent(types.EventTryPaymentContract, r.ContractID, dedupeKey, map[string]any{
		PayloadSettlementKey: r.DedupeKey(),
		"payer":              r.PartyOne,
		"payee":              r.PartyTwo,
		"amount":             r.Amount.String(),
		"currency":           r.Currency,
		"settlementDate":     r.SettlementDate.UTC().Format(time.DateOnly),
	})
}
