package metrics

import (
	"context"

	"github.com/kilianp07/ess-scheduler/core/events"
	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	"github.com/kilianp07/ess-scheduler/internal/eventbus"
)

// StartEventCollector subscribes to the event bus, records SoC samples on
// sink and writes a structured log line for every cycle and command.
// Cycles and commands are recorded on the sink by the scheduler itself.
// It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				handleEvent(ev, sink, log)
			}
		}
	}()
}

func handleEvent(ev eventbus.Event, sink coremetrics.MetricsSink, log logger.Logger) {
	switch e := ev.(type) {
	case events.SoCUpdated:
		if r, ok := sink.(coremetrics.SoCRecorder); ok {
			if err := r.RecordSoC(coremetrics.SoCEvent{Storage: e.Sample.Kind, SoC: e.Sample.SoC, Time: e.Sample.At}); err != nil {
				log.Errorf("soc metrics error: %v", err)
			}
		}
	case events.CycleCompleted:
		fields := map[string]any{
			"cycle_id": e.CycleID,
			"system":   e.System.String(),
			"method":   e.Method.String(),
			"duration": e.Duration.String(),
		}
		if e.Result != nil {
			fields["status"] = string(e.Result.Status)
			fields["objective"] = e.Result.Objective
		}
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
		log.Debugw("cycle completed", fields)
	case events.CommandExecuted:
		fields := map[string]any{
			"cycle_id":   e.CycleID,
			"command_id": e.Command.ID,
			"storage":    string(e.Command.Storage),
			"setpoint":   e.Command.Setpoint,
			"suppressed": e.Suppressed,
			"latency":    e.Latency.String(),
		}
		if e.Reason != "" {
			fields["reason"] = e.Reason
		}
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
		log.Debugw("command executed", fields)
	}
}
