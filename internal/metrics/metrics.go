package metrics

import (
	"net/http"

	"github.com/contractflow/contractflow/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contractflow"

// Metrics holds the service's prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	skippedTicks    prometheus.Counter
	cycleDuration   prometheus.Histogram
	batches         prometheus.Counter
	queueDepth      prometheus.Gauge
	records         *prometheus.CounterVec
	fsmOutcomes     *prometheus.CounterVec
	gatewayMessages *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "cycles_total",
			Help:      "Settlement scan cycles by result.",
		}, []string{"result"}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "skipped_ticks_total",
			Help:      "Scheduler ticks skipped because a cycle was still in flight.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "cycle_duration_seconds",
			Help:      "Time from scan start until every batch of the cycle is drained.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "batches_total",
			Help:      "Task batches pushed onto the queue.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "queue_depth",
			Help:      "Task batches waiting in the queue.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "records_total",
			Help:      "Settlement records processed by result.",
		}, []string{"result"}),
		fsmOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fsm",
			Name:      "events_total",
			Help:      "Events offered to the contract state machine by event and outcome.",
		}, []string{"event_name", "outcome"}),
		gatewayMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "messages_total",
			Help:      "Inbound messages by routing key, event name and result.",
		}, []string{"routing_key", "event_name", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles,
		m.skippedTicks,
		m.cycleDuration,
		m.batches,
		m.queueDepth,
		m.records,
		m.fsmOutcomes,
		m.gatewayMessages,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CycleCompleted(seconds float64) {
	m.cycles.WithLabelValues("completed").Inc()
	m.cycleDuration.Observe(seconds)
}

func (m *Metrics) CycleFailed() {
	m.cycles.WithLabelValues("failed").Inc()
}

func (m *Metrics) TickSkipped() {
	m.skippedTicks.Inc()
}

func (m *Metrics) BatchQueued() {
	m.batches.Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) RecordSubmitted() {
	m.records.WithLabelValues("submitted").Inc()
}

func (m *Metrics) RecordFailed() {
	m.records.WithLabelValues("failed").Inc()
}

func (m *Metrics) FSMOutcome(event types.ContractEventName, outcome types.TransitionOutcome) {
	m.fsmOutcomes.WithLabelValues(string(event), string(outcome)).Inc()
}

// Gateway results
const (
	ResultHandled  = "handled"
	ResultRejected = "rejected"
	ResultDropped  = "dropped"
	ResultFailed   = "failed"
)

func (m *Metrics) GatewayMessage(routingKey, eventName, result string) {
	m.gatewayMessages.WithLabelValues(routingKey, eventName, result).Inc()
}
