package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics collects the Prometheus series tracking the orchestrator's
// operation surface: request outcome, latency, reserve health, and
// throttling. Mirrors the module-level request/error/latency/throttle
// grouping the teacher applied to its JSON-RPC module metrics.
type LendingMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec

	utilization *prometheus.GaugeVec
	ltv         *prometheus.GaugeVec
	stale       *prometheus.GaugeVec
}

var (
	lendingMetricsOnce sync.Once
	lendingRegistry    *LendingMetrics
)

// Lending returns the lazily-initialized lending metrics registry.
func Lending() *LendingMetrics {
	lendingMetricsOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "texturelend",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total orchestrator operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "texturelend",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total orchestrator operation failures segmented by operation and error kind.",
			}, []string{"operation", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "texturelend",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for orchestrator operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "texturelend",
				Subsystem: "engine",
				Name:      "throttles_total",
				Help:      "Count of operations rejected by the per-account rate limiter.",
			}, []string{"pool"}),
			utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "texturelend",
				Subsystem: "reserve",
				Name:      "utilization_ratio",
				Help:      "Borrowed/total liquidity ratio for a reserve, updated on refresh.",
			}, []string{"pool", "mint"}),
			ltv: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "texturelend",
				Subsystem: "position",
				Name:      "ltv_bps",
				Help:      "Loan-to-value ratio in basis points for a refreshed position.",
			}, []string{"pool", "owner"}),
			stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "texturelend",
				Subsystem: "reserve",
				Name:      "stale",
				Help:      "1 if the reserve's last refresh left it stale, 0 otherwise.",
			}, []string{"pool", "mint"}),
		}
		prometheus.MustRegister(
			lendingRegistry.requests,
			lendingRegistry.errors,
			lendingRegistry.latency,
			lendingRegistry.throttles,
			lendingRegistry.utilization,
			lendingRegistry.ltv,
			lendingRegistry.stale,
		)
	})
	return lendingRegistry
}

// ObserveOperation records the outcome and latency of one orchestrator call.
func (m *LendingMetrics) ObserveOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	operation = normalizeLabel(operation)
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(operation, errorKind(err)).Inc()
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RequestsCounter returns the operations_total series for operation/outcome,
// for callers (tests, dashboards) that need the underlying series rather
// than just ObserveOperation's side effect.
func (m *LendingMetrics) RequestsCounter(operation, outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(normalizeLabel(operation), outcome)
}

// RecordThrottle increments the throttle counter for pool.
func (m *LendingMetrics) RecordThrottle(pool string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(normalizeLabel(pool)).Inc()
}

// RecordReserveHealth updates the utilization and staleness gauges for one
// (pool, mint) reserve after a refresh.
func (m *LendingMetrics) RecordReserveHealth(pool, mint string, utilization float64, stale bool) {
	if m == nil {
		return
	}
	pool, mint = normalizeLabel(pool), normalizeLabel(mint)
	m.utilization.WithLabelValues(pool, mint).Set(utilization)
	if stale {
		m.stale.WithLabelValues(pool, mint).Set(1)
	} else {
		m.stale.WithLabelValues(pool, mint).Set(0)
	}
}

// RecordPositionLTV updates the LTV gauge for one (pool, owner) position.
func (m *LendingMetrics) RecordPositionLTV(pool, owner string, ltvBps uint64) {
	if m == nil {
		return
	}
	m.ltv.WithLabelValues(normalizeLabel(pool), normalizeLabel(owner)).Set(float64(ltvBps))
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

func errorKind(err error) string {
	type kinded interface{ Error() string }
	if k, ok := err.(kinded); ok {
		msg := k.Error()
		if idx := strings.Index(msg, ":"); idx > 0 {
			return msg[:idx]
		}
	}
	return "unknown"
}
