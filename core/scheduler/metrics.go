package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal     *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	pendingCommands prometheus.Gauge
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ess_cycles_total",
			Help: "Scheduling cycles by outcome",
		},
		[]string{"method", "outcome"},
	)
	commands := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ess_commands_total",
			Help: "Actuation commands by storage and outcome",
		},
		[]string{"storage", "outcome"},
	)
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ess_pending_commands",
		Help: "Commands armed and waiting for their execution time",
	})
	return cycles, commands, pending
}

func init() {
	cyclesTotal, commandsTotal, pendingCommands = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cyclesTotal, commandsTotal, pendingCommands)
}

// ResetMetrics reinitializes the collectors for tests.
func ResetMetrics(reg prometheus.Registerer) {
	cyclesTotal, commandsTotal, pendingCommands = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
