package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSettlementDate(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		unit   int
		period BillingPeriod
		want   time.Time
	}{
		{
			name:   "daily",
			from:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			unit:   2,
			period: BILLING_PERIOD_DAILY,
			want:   time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "weekly",
			from:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			unit:   1,
			period: BILLING_PERIOD_WEEKLY,
			want:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly clamps to leap february",
			from:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			unit:   1,
			period: BILLING_PERIOD_MONTHLY,
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly clamps to short month",
			from:   time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
			unit:   1,
			period: BILLING_PERIOD_MONTHLY,
			want:   time.Date(2023, 4, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "quarterly across year end",
			from:   time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC),
			unit:   3,
			period: BILLING_PERIOD_MONTHLY,
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "annual from leap day",
			from:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			unit:   1,
			period: BILLING_PERIOD_ANNUAL,
			want:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextSettlementDate(tt.from, tt.unit, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextSettlementDateErrors(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NextSettlementDate(from, 0, BILLING_PERIOD_MONTHLY)
	assert.Error(t, err)

	_, err = NextSettlementDate(from, 1, BillingPeriod("FORTNIGHTLY"))
	assert.Error(t, err)
}

func TestContractStatusIsTerminal(t *testing.T) {
	assert.True(t, ContractStatusExpired.IsTerminal())
	assert.True(t, ContractStatusTerminated.IsTerminal())
	assert.True(t, ContractStatusFailed.IsTerminal())
	assert.False(t, ContractStatusCreated.IsTerminal())
	assert.False(t, ContractStatusActive.IsTerminal())
	assert.False(t, ContractStatusPendingPayment.IsTerminal())
}
