package contract

import (
	"time"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/shopspring/decimal"
)

// Contract is a licensing agreement between two parties. Once created its
// status is owned by the contract FSM; scanners and processors only read it.
type Contract struct {
	ID string `db:"id" json:"id"`
	// SeqID is assigned by the store on insert and only used to paginate settlement scans
	SeqID        int64              `db:"seq_id" json:"seq_id"`
	PartyOne     string             `db:"party_one" json:"party_one"`
	PartyTwo     string             `db:"party_two" json:"party_two"`
	ContractType types.ContractType `db:"contract_type" json:"contract_type"`
	// TargetID is the presentable or resource the contract grants access to
	TargetID   string `db:"target_id" json:"target_id"`
	ResourceID string `db:"resource_id" json:"resource_id"`
	SegmentID  string `db:"segment_id" json:"segment_id"`
	// ExpireDate is registered with the event center when the contract starts
	ExpireDate     time.Time            `db:"expire_date" json:"expire_date"`
	ContractStatus types.ContractStatus `db:"contract_status" json:"contract_status"`
	CycleType      types.CycleType      `db:"cycle_type" json:"cycle_type"`

	SettlementPeriod     types.BillingPeriod `db:"settlement_period" json:"settlement_period,omitempty"`
	SettlementPeriodUnit int                 `db:"settlement_period_unit" json:"settlement_period_unit,omitempty"`
	// NextSettlementDate is the due date of the current billing cycle, nil for one-time contracts
	NextSettlementDate *time.Time      `db:"next_settlement_date" json:"next_settlement_date,omitempty"`
	SettlementAmount   decimal.Decimal `db:"settlement_amount" json:"settlement_amount"`
	Currency           string          `db:"currency" json:"currency"`
	FirstActivatedAt   *time.Time      `db:"first_activated_at" json:"first_activated_at,omitempty"`

	types.BaseModel
}

func (c *Contract) IsRecurring() bool {
	return c.CycleType == types.CycleTypeRecurring
}

// Validate checks the fields a contract must carry before it is stored
func (c *Contract) Validate() error {
	if c.PartyOne == "" || c.PartyTwo == "" {
		return ierr.NewError("contract parties are required").
			WithHint("Both party_one and party_two must be set").
			Mark(ierr.ErrValidation)
	}
	if c.TargetID == "" {
		return ierr.NewError("target_id is required").
			WithHint("Contract must reference a target").
			Mark(ierr.ErrValidation)
	}
	if err := c.ContractType.Validate(); err != nil {
		return err
	}
	if err := c.CycleType.Validate(); err != nil {
		return err
	}
	if c.ExpireDate.IsZero() {
		return ierr.NewError("expire_date is required").
			WithHint("Contract must have an expiry date").
			Mark(ierr.ErrValidation)
	}
	if c.SettlementAmount.IsNegative() {
		return ierr.NewError("settlement_amount cannot be negative").
			WithHint("Settlement amount must be zero or positive").
			WithReportableDetails(map[string]any{"settlement_amount": c.SettlementAmount.String()}).
			Mark(ierr.ErrValidation)
	}

	if !c.IsRecurring() {
		return nil
	}

	if err := c.SettlementPeriod.Validate(); err != nil {
		return err
	}
	if c.SettlementPeriodUnit <= 0 {
		return ierr.NewError("settlement_period_unit must be positive").
			WithHint("Recurring contracts need a positive settlement period unit").
			Mark(ierr.ErrValidation)
	}
	if !c.SettlementAmount.IsPositive() {
		return ierr.NewError("settlement_amount must be positive").
			WithHint("Recurring contracts need a positive settlement amount").
			Mark(ierr.ErrValidation)
	}
	if c.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Recurring contracts need a settlement currency").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AdvanceSettlementDate moves NextSettlementDate one billing period forward.
// One-time contracts are left untouched.
func (c *Contract) AdvanceSettlementDate() error {
	if !c.IsRecurring() || c.NextSettlementDate == nil {
		return nil
	}
	next, err := types.NextSettlementDate(*c.NextSettlementDate, c.SettlementPeriodUnit, c.SettlementPeriod)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to compute the next settlement date").
			WithReportableDetails(map[string]any{
				"contract_id":       c.ID,
				"settlement_period": c.SettlementPeriod,
			}).
			Mark(ierr.ErrSystem)
	}
	c.NextSettlementDate = &next
	return nil
}

// Clone returns a copy that can be mutated without touching the original
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	if c.NextSettlementDate != nil {
		t := *c.NextSettlementDate
		out.NextSettlementDate = &t
	}
	if c.FirstActivatedAt != nil {
		t := *c.FirstActivatedAt
		out.FirstActivatedAt = &t
	}
	return &out
}
