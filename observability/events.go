package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"texturelend/lending"
)

type eventMetrics struct {
	operations *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured orchestrator
// operation events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "texturelend",
				Subsystem: "events",
				Name:      "operations_total",
				Help:      "Count of emitted lending operation events segmented by operation, pool, and outcome.",
			}, []string{"operation", "pool", "outcome"}),
		}
		prometheus.MustRegister(eventRegistry.operations)
	})
	return eventRegistry
}

// RecordOperation increments the operation counter for the supplied
// operation/pool/outcome combination.
func (m *eventMetrics) RecordOperation(operation, pool string, failed bool) {
	if m == nil {
		return
	}
	operation, pool = normalizeLabel(operation), normalizeLabel(pool)
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, pool, outcome).Inc()
}

// EventSink adapts the lending engine's EventSink interface onto the
// package's event counter, so every emitted OperationEvent increments the
// operations_total series keyed by (operation, pool, outcome). It does not
// touch the Lending() request/error/latency series; the daemon's timed
// wrappers record those.
type EventSink struct {
	metrics  *eventMetrics
	lending  *LendingMetrics
	fallback lending.EventSink
}

// NewEventSink builds an EventSink backed by the package's Prometheus
// registries. fallback, if non-nil, is invoked after metrics are recorded
// (for example to forward into a durable audit log).
func NewEventSink(fallback lending.EventSink) *EventSink {
	return &EventSink{metrics: Events(), lending: Lending(), fallback: fallback}
}

// Emit implements lending.EventSink.
func (s *EventSink) Emit(ctx context.Context, evt lending.OperationEvent) {
	if s == nil {
		return
	}
	s.metrics.RecordOperation(evt.Op, evt.PoolID, evt.Err != nil)
	if s.fallback != nil {
		s.fallback.Emit(ctx, evt)
	}
}
