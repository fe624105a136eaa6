package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	cycles    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective prometheus.Gauge
	setpoints *prometheus.GaugeVec
	commands  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	soc       *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	if s.cycles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ess_cycle_events_total",
		Help: "Scheduling cycles by system, method and solver status",
	}, []string{"system", "method", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ess_cycle_duration_seconds",
		Help:    "Wall time of a scheduling cycle",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ess_cycle_objective",
		Help: "Objective value of the last planned cycle",
	})); err != nil {
		return nil, err
	}
	if s.setpoints, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ess_planned_setpoint_kw",
		Help: "Planned setpoint per storage and hour offset of the last cycle",
	}, []string{"storage", "offset"})); err != nil {
		return nil, err
	}
	if s.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ess_command_events_total",
		Help: "Actuation commands by storage, operation and result",
	}, []string{"storage", "operation", "result"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ess_command_latency_seconds",
		Help:    "Time spent delivering an actuation command",
		Buckets: prometheus.DefBuckets,
	}, []string{"storage"})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ess_storage_soc_percent",
		Help: "Last accepted state of charge per storage",
	}, []string{"storage"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle counts the cycle and tracks its duration and objective.
func (s *PromSink) RecordCycle(ev coremetrics.CycleEvent) error {
	status := ev.Status
	switch {
	case ev.Skipped:
		status = "skipped"
	case ev.Error != "":
		status = "failed"
	case status == "":
		status = "none"
	}
	s.cycles.WithLabelValues(ev.System, ev.Method, status).Inc()
	s.duration.WithLabelValues(ev.Method).Observe(ev.Duration.Seconds())
	if ev.Error == "" && !ev.Skipped {
		s.objective.Set(ev.Objective)
	}
	return nil
}

// RecordSetpoints replaces the planned setpoint gauges.
func (s *PromSink) RecordSetpoints(evs []coremetrics.SetpointEvent) error {
	s.setpoints.Reset()
	seen := make(map[string]int)
	for _, e := range evs {
		i := seen[string(e.Storage)]
		seen[string(e.Storage)] = i + 1
		s.setpoints.WithLabelValues(string(e.Storage), strconv.Itoa(i)).Set(e.Setpoint)
	}
	return nil
}

// RecordCommand counts the command and observes its delivery latency.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	result := "executed"
	switch {
	case ev.Error != "":
		result = "failed"
	case ev.Suppressed:
		result = "suppressed"
	}
	s.commands.WithLabelValues(string(ev.Storage), ev.Operation.String(), result).Inc()
	s.latency.WithLabelValues(string(ev.Storage)).Observe(ev.Latency.Seconds())
	return nil
}

// RecordSoC sets the state of charge gauge.
func (s *PromSink) RecordSoC(ev coremetrics.SoCEvent) error {
	s.soc.WithLabelValues(string(ev.Storage)).Set(ev.SoC)
	return nil
}
