package settlement

import (
	"testing"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestWindowContains(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, start.Add(24*time.Hour))

	due := &contract.Contract{
		ContractStatus:     types.ContractStatusActive,
		CycleType:          types.CycleTypeRecurring,
		NextSettlementDate: lo.ToPtr(start.Add(time.Hour)),
	}

	tests := []struct {
		name   string
		mutate func(c *contract.Contract)
		want   bool
	}{
		{"due active recurring", func(c *contract.Contract) {}, true},
		{"start is inclusive", func(c *contract.Contract) { c.NextSettlementDate = lo.ToPtr(start) }, true},
		{"end is exclusive", func(c *contract.Contract) { c.NextSettlementDate = lo.ToPtr(w.EndDate) }, false},
		{"pending payment skipped", func(c *contract.Contract) { c.ContractStatus = types.ContractStatusPendingPayment }, false},
		{"one time skipped", func(c *contract.Contract) { c.CycleType = types.CycleTypeOneTime }, false},
		{"no settlement date", func(c *contract.Contract) { c.NextSettlementDate = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := due.Clone()
			tt.mutate(c)
			assert.Equal(t, tt.want, w.Contains(c))
		})
	}
}

func TestRecordDedupeKey(t *testing.T) {
	r := &Record{
		ContractID:     "contract_1",
		SettlementDate: time.Date(2024, 3, 31, 23, 0, 0, 0, time.FixedZone("x", -2*3600)),
	}
	assert.Equal(t, "contract_1:2024-04-01", r.DedupeKey())
}

func TestTaskBatchDoneRunsOnce(t *testing.T) {
	calls := 0
	b := NewTaskBatch("cycle_1", []*Record{{SeqID: 3}, {SeqID: 7}}, func() { calls++ })

	assert.Equal(t, int64(3), b.StartSeqID)
	assert.Equal(t, int64(7), b.EndSeqID)
	assert.Equal(t, 2, b.Size())

	b.Done()
	b.Done()
	assert.Equal(t, 1, calls)
}
