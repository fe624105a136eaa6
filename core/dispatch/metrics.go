package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solveLatency  *prometheus.HistogramVec
	solveFailures *prometheus.CounterVec
	plannedCost   *prometheus.GaugeVec
	plannedPeak   *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.GaugeVec, *prometheus.GaugeVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ess_optimization_duration_seconds",
			Help:    "Time spent building and solving the dispatch problem",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"system", "status"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ess_optimization_failures_total",
			Help: "Number of dispatch optimizations that returned no plan",
		},
		[]string{"system"},
	)
	cost := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ess_planned_cost",
			Help: "Objective value of the last dispatch plan",
		},
		[]string{"system"},
	)
	peak := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ess_planned_peak_kw",
			Help: "Predicted demand peak of the last dispatch plan",
		},
		[]string{"system", "period"},
	)
	return lat, fail, cost, peak
}

func init() {
	solveLatency, solveFailures, plannedCost, plannedPeak = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solveLatency, solveFailures, plannedCost, plannedPeak)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solveLatency, solveFailures, plannedCost, plannedPeak = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
