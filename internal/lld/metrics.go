package lld

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/lld/metric"
)

// orchestratorMetrics holds the Prometheus metrics for the orchestrator,
// grounded on processor/rule's RuleMetrics registration pattern.
type orchestratorMetrics struct {
	processDuration *prometheus.HistogramVec
	rowsSurviving   prometheus.Histogram
	writebacksTotal *prometheus.CounterVec
	abortsTotal     *prometheus.CounterVec
}

// newOrchestratorMetrics registers the orchestrator's metrics, or
// returns nil if registry is nil (nil input = nil feature, matching
// newRuleMetrics).
func newOrchestratorMetrics(registry *metric.MetricsRegistry) *orchestratorMetrics {
	if registry == nil {
		return nil
	}

	m := &orchestratorMetrics{
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lld",
			Subsystem: "orchestrator",
			Name:      "process_duration_seconds",
			Help:      "Time spent executing the S1-S8 pipeline for one rule invocation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"outcome"}),

		rowsSurviving: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lld",
			Subsystem: "orchestrator",
			Name:      "rows_surviving",
			Help:      "Number of discovery rows surviving filter evaluation per invocation",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		writebacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lld",
			Subsystem: "orchestrator",
			Name:      "writebacks_total",
			Help:      "Rule-row updates persisted",
		}, []string{"state"}),

		abortsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lld",
			Subsystem: "orchestrator",
			Name:      "aborts_total",
			Help:      "Invocations abandoned before writeback",
		}, []string{"reason"}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.processDuration,
		m.rowsSurviving,
		m.writebacksTotal,
		m.abortsTotal,
	)

	return m
}

func (m *orchestratorMetrics) observeAbort(reason string) {
	if m == nil {
		return
	}
	m.abortsTotal.WithLabelValues(reason).Inc()
}

func (m *orchestratorMetrics) observeWriteback(state string) {
	if m == nil {
		return
	}
	m.writebacksTotal.WithLabelValues(state).Inc()
}

func (m *orchestratorMetrics) observeRows(n int) {
	if m == nil {
		return
	}
	m.rowsSurviving.Observe(float64(n))
}
