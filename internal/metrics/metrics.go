package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "reconciler_"

// Stage labels.
const (
	StageBaseline       = "baseline"
	StageReconciliation = "reconciliation"
	StageSensitivity    = "sensitivity"
)

// Cache results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics bundles the reconciler collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	PipelineRuns     *prometheus.CounterVec
	CacheEvents      *prometheus.CounterVec
	FitFallbacks     prometheus.Counter
	AnalysisDuration prometheus.Histogram
	FlaggedMonths    prometheus.Gauge
	RevenueExposure  prometheus.Gauge
}

// New constructs the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Total pipeline stage executions by stage",
			},
			[]string{"stage"},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_events_total",
				Help: "Memoization cache lookups by stage and result",
			},
			[]string{"stage", "result"},
		),
		FitFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "fit_fallback_total",
			Help: "Decline fits that fell back to the default model",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "analysis_duration_seconds",
			Help:    "Analysis latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		FlaggedMonths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "flagged_months",
			Help: "Flagged months in the latest analysis",
		}),
		RevenueExposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "revenue_exposure",
			Help: "Total revenue exposure of the latest analysis",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PipelineRuns,
			m.CacheEvents,
			m.FitFallbacks,
			m.AnalysisDuration,
			m.FlaggedMonths,
			m.RevenueExposure,
		)
	}
	return m
}

// ObserveStage counts one execution of stage.
func (m *Metrics) ObserveStage(stage string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(stage).Inc()
}

// ObserveCache counts a cache lookup for stage.
func (m *Metrics) ObserveCache(stage string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.CacheEvents.WithLabelValues(stage, result).Inc()
}

// IncFitFallback counts a fallback decline model.
func (m *Metrics) IncFitFallback() {
	if m == nil {
		return
	}
	m.FitFallbacks.Inc()
}

// ObserveAnalysis records the latency and headline figures of a run.
func (m *Metrics) ObserveAnalysis(duration time.Duration, flagged int, exposure float64) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Observe(duration.Seconds())
	m.FlaggedMonths.Set(float64(flagged))
	m.RevenueExposure.Set(exposure)
}
