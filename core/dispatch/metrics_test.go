package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	// touch metrics so they are exported
	solveLatency.WithLabelValues("bess", "optimal").Observe(0.1)
	solveFailures.WithLabelValues("bess").Inc()
	plannedCost.WithLabelValues("bess").Set(12)
	plannedPeak.WithLabelValues("bess", "peak").Set(40)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{
		"ess_optimization_duration_seconds",
		"ess_optimization_failures_total",
		"ess_planned_cost",
		"ess_planned_peak_kw",
	} {
		if !names[n] {
			t.Errorf("metric %s not registered", n)
		}
	}
}
