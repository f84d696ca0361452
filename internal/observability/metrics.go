package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// decision pipeline.
type Metrics struct {
	CyclesRun     prometheus.Counter
	CyclesSkipped prometheus.Counter
	CycleDuration prometheus.Histogram

	AreasEvaluated      prometheus.Counter
	AlertsEmitted       *prometheus.CounterVec // labels: severity
	CandidatesEvaluated *prometheus.CounterVec // labels: scope
	DecisionOutcomes    *prometheus.CounterVec // labels: outcome
	PostsSubmitted      *prometheus.CounterVec // labels: result={posted,dry_run,failed}
	StoreDegradations   prometheus.Counter

	FormatterFallbacks prometheus.Counter
	FormatterDuration  prometheus.Histogram

	PostingEnabled prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesRun,
		m.CyclesSkipped,
		m.CycleDuration,
		m.AreasEvaluated,
		m.AlertsEmitted,
		m.CandidatesEvaluated,
		m.DecisionOutcomes,
		m.PostsSubmitted,
		m.StoreDegradations,
		m.FormatterFallbacks,
		m.FormatterDuration,
		m.PostingEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "cycles_run_total",
			Help:      "Total decision cycles executed.",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because the lease was held.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_alert",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete decision cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AreasEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "areas_evaluated_total",
			Help:      "Area feature records classified.",
		}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "alerts_emitted_total",
			Help:      "Pre-alerts emitted by the rule engine, by severity.",
		}, []string{"severity"}),
		CandidatesEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "candidates_evaluated_total",
			Help:      "Notification candidates entering governance, by scope.",
		}, []string{"scope"}),
		DecisionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "decision_outcomes_total",
			Help:      "Terminal governance outcomes, by outcome.",
		}, []string{"outcome"}),
		PostsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "posts_submitted_total",
			Help:      "Publish attempts, by result.",
		}, []string{"result"}),
		StoreDegradations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "store_degradations_total",
			Help:      "Governance passes degraded by an unreachable backing store.",
		}),
		FormatterFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_alert",
			Name:      "formatter_fallbacks_total",
			Help:      "Posts rendered by the deterministic fallback formatter.",
		}),
		FormatterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_alert",
			Name:      "formatter_duration_seconds",
			Help:      "Primary formatter request duration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PostingEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rain_alert",
			Name:      "posting_enabled",
			Help:      "1 when live posting is enabled, 0 in dry-run mode.",
		}),
	}
}
