package contract

import (
	"testing"
	"time"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecurring() *Contract {
	return &Contract{
		ID:                   "contract_1",
		PartyOne:             "node_1",
		PartyTwo:             "user_1",
		ContractType:         types.ContractTypePresentableToUser,
		TargetID:             "presentable_1",
		ExpireDate:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ContractStatus:       types.ContractStatusCreated,
		CycleType:            types.CycleTypeRecurring,
		SettlementPeriod:     types.BILLING_PERIOD_MONTHLY,
		SettlementPeriodUnit: 1,
		SettlementAmount:     decimal.NewFromInt(25),
		Currency:             "USD",
	}
}

func TestContractValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Contract)
		wantErr bool
	}{
		{"valid recurring", func(c *Contract) {}, false},
		{"valid one time without period", func(c *Contract) {
			c.CycleType = types.CycleTypeOneTime
			c.SettlementPeriod = ""
			c.SettlementPeriodUnit = 0
		}, false},
		{"missing party", func(c *Contract) { c.PartyTwo = "" }, true},
		{"bad contract type", func(c *Contract) { c.ContractType = "NODE_TO_USER" }, true},
		{"missing expire date", func(c *Contract) { c.ExpireDate = time.Time{} }, true},
		{"recurring without period", func(c *Contract) { c.SettlementPeriod = "" }, true},
		{"recurring with zero unit", func(c *Contract) { c.SettlementPeriodUnit = 0 }, true},
		{"recurring with zero amount", func(c *Contract) { c.SettlementAmount = decimal.Zero }, true},
		{"recurring without currency", func(c *Contract) { c.Currency = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validRecurring()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAdvanceSettlementDate(t *testing.T) {
	c := validRecurring()
	c.NextSettlementDate = lo.ToPtr(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	require.NoError(t, c.AdvanceSettlementDate())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *c.NextSettlementDate)

	oneTime := validRecurring()
	oneTime.CycleType = types.CycleTypeOneTime
	require.NoError(t, oneTime.AdvanceSettlementDate())
	assert.Nil(t, oneTime.NextSettlementDate)
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, NewEvent(types.EventTryPaymentContract, "c1", "", nil).Validate())
	assert.True(t, ierr.IsValidation(NewEvent(types.EventPaymentContract, "c1", "", nil).Validate()))
	assert.True(t, ierr.IsValidation(NewEvent(types.EventAccountRecharge, "c1", "", nil).Validate()))
	assert.True(t, ierr.IsValidation(NewEvent(types.EventTryPaymentContract, "", "", nil).Validate()))
}
