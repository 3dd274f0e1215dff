package metrics

import (
	"testing"

	"github.com/contractflow/contractflow/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.TickSkipped()
	m.TickSkipped()
	m.CycleCompleted(0.2)
	m.CycleFailed()
	m.FSMOutcome(types.EventPaymentContract, types.TransitionOutcomeDuplicate)
	m.GatewayMessage("contract.payment.contract", "refundEvent", ResultRejected)
	m.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.skippedTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fsmOutcomes.WithLabelValues("paymentContractEvent", "DUPLICATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayMessages.WithLabelValues("contract.payment.contract", "refundEvent", ResultRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.TickSkipped()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.skippedTicks))
}
