// Package metrics provides the centralized Prometheus registry for the
// picks engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "cycles_total",
		Help:      "Total number of pipeline cycles run",
	})
	RacesProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "races_processed_total",
		Help:      "Total number of races scored",
	})
	PicksStoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "picks_stored_total",
		Help:      "Total number of pick records written",
	}, []string{"kind"})
	CoverageFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "coverage_failures_total",
		Help:      "Total number of races skipped for insufficient coverage",
	})
	OutcomesSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "outcomes_settled_total",
		Help:      "Total number of outcomes recorded",
	}, []string{"outcome"})
	WeightAdjustmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "weight_adjustments_total",
		Help:      "Total number of learning runs that changed weights",
	})
	WeightConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "weight_conflicts_total",
		Help:      "Total number of weights compare-and-set conflicts",
	})
	ExchangeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "race_picks",
		Name:      "exchange_errors_total",
		Help:      "Total number of exchange fetch errors",
	}, []string{"kind"})
)

// Gauge metrics
var (
	CurrentWeights = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "race_picks",
		Name:      "current_weights",
		Help:      "Current scoring weight per factor",
	}, []string{"factor"})
	PendingPicks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_picks",
		Name:      "pending_picks",
		Help:      "Picks awaiting a settled result",
	})
)

// Histogram metrics
var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_picks",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one full pipeline cycle in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
	SnapshotFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_picks",
		Name:      "snapshot_fetch_duration_seconds",
		Help:      "Duration of market snapshot fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PickScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_picks",
		Name:      "pick_score",
		Help:      "Distribution of combined confidence scores",
		Buckets:   []float64{0, 15, 30, 45, 60, 75, 90, 100},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(CyclesTotal)
		registry.MustRegister(RacesProcessedTotal)
		registry.MustRegister(PicksStoredTotal)
		registry.MustRegister(CoverageFailuresTotal)
		registry.MustRegister(OutcomesSettledTotal)
		registry.MustRegister(WeightAdjustmentsTotal)
		registry.MustRegister(WeightConflictsTotal)
		registry.MustRegister(ExchangeErrorsTotal)

		registry.MustRegister(CurrentWeights)
		registry.MustRegister(PendingPicks)

		registry.MustRegister(CycleDuration)
		registry.MustRegister(SnapshotFetchDuration)
		registry.MustRegister(PickScore)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordCycle records the completion of one pipeline cycle.
func RecordCycle(durationSeconds float64) {
	CyclesTotal.Inc()
	CycleDuration.Observe(durationSeconds)
}

// RecordPickStored records one stored pick record by kind.
func RecordPickStored(showInUI bool) {
	if showInUI {
		PicksStoredTotal.WithLabelValues("ui").Inc()
	} else {
		PicksStoredTotal.WithLabelValues("learning").Inc()
	}
}

// RecordOutcome records one settled outcome.
func RecordOutcome(outcome string) {
	OutcomesSettledTotal.WithLabelValues(outcome).Inc()
}

// UpdateWeights publishes every factor of the current weights.
func UpdateWeights(values map[string]float64) {
	for factor, value := range values {
		CurrentWeights.WithLabelValues(factor).Set(value)
	}
}
