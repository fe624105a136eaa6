package scheduler

import (
	"time"

	"github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/events"
	"github.com/kilianp07/ess-scheduler/core/guard"
	"github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/monitoring"
)

// cancelPending stops every armed command and starts a new generation.
// Timers that already fired but did not run yet see the generation change
// and drop their command.
func (s *RollingScheduler) cancelPending() uint64 {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	pendingCommands.Set(0)
	s.generation++
	return s.generation
}

// arm schedules cmd at cmd.At. Commands in the past run immediately.
func (s *RollingScheduler) arm(gen uint64, cycleID string, cmd model.ActuationCommand) {
	delay := cmd.At.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.stopped || gen != s.generation {
		return
	}
	p := &pendingCommand{cmd: cmd, cycleID: cycleID, gen: gen}
	s.pending[cmd.ID] = p
	p.timer = s.afterFunc(delay, func() { s.fire(p) })
	pendingCommands.Set(float64(len(s.pending)))
}

func (s *RollingScheduler) fire(p *pendingCommand) {
	s.pmu.Lock()
	cur, ok := s.pending[p.cmd.ID]
	if !ok || cur != p || p.gen != s.generation {
		s.pmu.Unlock()
		return
	}
	delete(s.pending, p.cmd.ID)
	pendingCommands.Set(float64(len(s.pending)))
	s.pmu.Unlock()

	defer monitoring.Recover()
	s.execute(p)
}

func (s *RollingScheduler) execute(p *pendingCommand) {
	started := time.Now()
	out := s.executor.Execute(s.ctx, p.cmd)
	latency := time.Since(started)

	outcome := "executed"
	reason := out.Decision.Reason
	suppressed := out.Decision.Verdict == guard.Suppressed
	if suppressed {
		outcome = "suppressed"
	}
	errStr := ""
	if out.Err != nil {
		outcome = "failed"
		errStr = out.Err.Error()
		monitoring.CaptureException(out.Err, map[string]string{
			"cycle_id":   p.cycleID,
			"command_id": p.cmd.ID,
			"storage":    string(p.cmd.Storage),
		})
	}
	commandsTotal.WithLabelValues(string(p.cmd.Storage), outcome).Inc()

	sent := out.Decision.Command
	if sent.ID == "" {
		sent = p.cmd
	}
	if rec, ok := s.sink.(metrics.CommandRecorder); ok {
		if err := rec.RecordCommand(metrics.CommandEvent{
			CommandID:  p.cmd.ID,
			Storage:    p.cmd.Storage,
			Operation:  sent.Operation(),
			Setpoint:   sent.Setpoint,
			Suppressed: suppressed,
			Reason:     reason,
			Error:      errStr,
			Latency:    latency,
			Time:       started,
		}); err != nil {
			s.logger.Errorf("command metrics error: %v", err)
		}
	}
	if store := s.logStore(); store != nil {
		cmd := sent
		if err := store.Append(s.ctx, logging.LogRecord{
			Timestamp: started,
			Kind:      logging.KindCommand,
			CycleID:   p.cycleID,
			System:    s.cfg.System.String(),
			Method:    s.cfg.Method.String(),
			Outcome:   outcome,
			Error:     errStr,
			Command:   &cmd,
			Reason:    reason,
		}); err != nil {
			s.logger.Errorf("command log error: %v", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.CommandExecuted{
			CycleID:    p.cycleID,
			Command:    sent,
			Suppressed: suppressed,
			Reason:     reason,
			Err:        out.Err,
			Latency:    latency,
		})
	}
	if out.FollowUp != nil {
		s.arm(p.gen, p.cycleID, *out.FollowUp)
	}
}
