package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/ess-scheduler/core/actuation"
	"github.com/kilianp07/ess-scheduler/core/dispatch"
	"github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/events"
	"github.com/kilianp07/ess-scheduler/core/forecast"
	"github.com/kilianp07/ess-scheduler/core/logger"
	"github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/monitoring"
	"github.com/kilianp07/ess-scheduler/internal/eventbus"
)

// Optimizer computes the plan of one cycle.
type Optimizer interface {
	Optimize(ctx context.Context, in dispatch.CycleInput) (*model.DispatchResult, error)
}

// Executor delivers one command.
type Executor interface {
	Execute(ctx context.Context, cmd model.ActuationCommand) actuation.Outcome
}

// timer is the part of *time.Timer used to cancel pending commands.
type timer interface {
	Stop() bool
}

type pendingCommand struct {
	cmd     model.ActuationCommand
	cycleID string
	gen     uint64
	timer   timer
}

// Plan is the last plan computed by the scheduler.
type Plan struct {
	CycleID   string                          `json:"cycle_id"`
	Start     time.Time                       `json:"start"`
	Result    *model.DispatchResult           `json:"result,omitempty"`
	Setpoints map[model.StorageKind][]float64 `json:"setpoints"`
	Schedule  model.Schedule                  `json:"schedule,omitempty"`
}

// cycle accumulates what a single RunCycle produced.
type cycle struct {
	id        string
	start     time.Time
	began     time.Time
	result    *model.DispatchResult
	setpoints map[model.StorageKind][]float64
	schedule  model.Schedule
}

// RollingScheduler runs scheduling cycles and owns the pending commands.
type RollingScheduler struct {
	cfg       Config
	state     *StateStore
	optimizer Optimizer
	executor  Executor
	publisher Publisher
	sink      metrics.MetricsSink
	bus       eventbus.EventBus
	logger    logger.Logger

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes cycles.
	mu sync.Mutex

	// pmu guards the fields below.
	pmu        sync.Mutex
	latest     *Plan
	store      logging.LogStore
	pending    map[string]*pendingCommand
	generation uint64
	stopped    bool
}

// NewRollingScheduler validates cfg and builds a scheduler. publisher, sink
// and bus may be nil.
func NewRollingScheduler(cfg Config, state *StateStore, opt Optimizer, exec Executor, pub Publisher, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*RollingScheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if state == nil || exec == nil {
		return nil, fmt.Errorf("%w: scheduler requires a state store and an executor", model.ErrConfig)
	}
	if opt == nil && cfg.Method != model.MethodDirect {
		return nil, fmt.Errorf("%w: %s method requires an optimizer", model.ErrConfig, cfg.Method)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RollingScheduler{
		cfg:       cfg,
		state:     state,
		optimizer: opt,
		executor:  exec,
		publisher: pub,
		sink:      sink,
		bus:       bus,
		logger:    log,
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) },
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]*pendingCommand),
	}, nil
}

// SetLogStore configures the store used to persist cycle and command logs.
func (s *RollingScheduler) SetLogStore(store logging.LogStore) {
	s.pmu.Lock()
	s.store = store
	s.pmu.Unlock()
}

func (s *RollingScheduler) logStore() logging.LogStore {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.store
}

// Config returns the scheduler configuration.
func (s *RollingScheduler) Config() Config { return s.cfg }

// RunCycle runs one scheduling cycle for the hour containing now. Data errors
// skip the cycle and keep the commands of the previous one.
func (s *RollingScheduler) RunCycle(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &cycle{id: uuid.NewString(), start: hourStart(now), began: time.Now()}
	var err error
	switch s.cfg.Method {
	case model.MethodControl, model.MethodSchedule:
		err = s.runPlanned(ctx, c)
	case model.MethodDirect:
		s.runDirect(c)
	default:
		err = fmt.Errorf("%w: unknown method %d", model.ErrConfig, s.cfg.Method)
	}
	s.finish(ctx, c, err)
	return err
}

func (s *RollingScheduler) runPlanned(ctx context.Context, c *cycle) error {
	kinds := s.cfg.System.Storages()
	var gen uint64
	if err := s.compute(ctx, c, func() { gen = s.cancelPending() }); err != nil {
		return err
	}

	// control only acts on the current hour, the next cycle re-plans
	hours := s.cfg.Horizon
	if s.cfg.Method == model.MethodControl {
		hours = 1
	}
	for i := 0; i < hours; i++ {
		at := c.start.Add(time.Duration(i) * time.Hour)
		for _, k := range kinds {
			s.arm(gen, c.id, model.NewCommand(k, c.setpoints[k][i], at, i))
		}
	}

	c.schedule = buildSchedule(s.cfg.Method, c.start, s.cfg.Horizon, c.setpoints, kinds)
	if s.publisher != nil {
		if err := s.publisher.PublishSchedule(ctx, c.schedule); err != nil {
			s.logger.Warnf("publish schedule of cycle %s: %v", c.id, err)
		}
	}
	s.setLatest(&Plan{CycleID: c.id, Start: c.start, Result: c.result, Setpoints: c.setpoints, Schedule: c.schedule})
	return nil
}

// compute fills the setpoints of c from the static configuration or the
// optimizer. replan runs once the forecasts are usable, before solving.
func (s *RollingScheduler) compute(ctx context.Context, c *cycle, replan func()) error {
	if static, ok := s.static(c.start.Hour()); ok {
		replan()
		c.setpoints = static
		s.logger.Infof("cycle %s uses static setpoints", c.id)
		return nil
	}
	snap := s.state.Snapshot()
	window, err := forecast.Align(snap.Forecast, c.start.Hour(), s.cfg.Horizon)
	if err != nil {
		return fmt.Errorf("align forecasts: %w", err)
	}
	replan()
	res, err := s.optimizer.Optimize(ctx, dispatch.CycleInput{
		Start:    c.start,
		Forecast: window,
		Battery:  snap.State(model.StorageBattery),
		Thermal:  snap.State(model.StorageThermal),
	})
	if err != nil {
		return err
	}
	c.result = res
	c.setpoints = commandSetpoints(res, s.cfg.System.Storages(), s.cfg.COP, s.cfg.RoundingPrecision)
	return nil
}

// Preview plans the hour containing now without touching pending commands,
// publishing or recording anything.
func (s *RollingScheduler) Preview(ctx context.Context, now time.Time) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &cycle{id: uuid.NewString(), start: hourStart(now)}
	if s.cfg.Method == model.MethodDirect {
		c.setpoints = make(map[model.StorageKind][]float64)
		for _, k := range s.cfg.System.Storages() {
			c.setpoints[k] = []float64{s.cfg.DirectSetpoint}
		}
		return &Plan{CycleID: c.id, Start: c.start, Setpoints: c.setpoints}, nil
	}
	if err := s.compute(ctx, c, func() {}); err != nil {
		return nil, err
	}
	c.schedule = buildSchedule(s.cfg.Method, c.start, s.cfg.Horizon, c.setpoints, s.cfg.System.Storages())
	return &Plan{CycleID: c.id, Start: c.start, Result: c.result, Setpoints: c.setpoints, Schedule: c.schedule}, nil
}

func (s *RollingScheduler) runDirect(c *cycle) {
	gen := s.cancelPending()
	at := s.now()
	c.setpoints = make(map[model.StorageKind][]float64)
	for _, k := range s.cfg.System.Storages() {
		c.setpoints[k] = []float64{s.cfg.DirectSetpoint}
		s.arm(gen, c.id, model.NewCommand(k, s.cfg.DirectSetpoint, at, 0))
	}
	s.setLatest(&Plan{CycleID: c.id, Start: c.start, Setpoints: c.setpoints})
}

// static returns the configured setpoints rotated to hour when every storage
// of the system has some and the method is schedule.
func (s *RollingScheduler) static(hour int) (map[model.StorageKind][]float64, bool) {
	if s.cfg.Method != model.MethodSchedule || len(s.cfg.StaticSetpoints) == 0 {
		return nil, false
	}
	out := make(map[model.StorageKind][]float64)
	for _, k := range s.cfg.System.Storages() {
		sp, ok := s.cfg.StaticSetpoints[k]
		if !ok {
			return nil, false
		}
		rotated := forecast.Rotate(sp, hour)
		for i, v := range rotated {
			rotated[i] = roundTo(v, s.cfg.RoundingPrecision)
		}
		out[k] = rotated
	}
	return out, true
}

func (s *RollingScheduler) finish(ctx context.Context, c *cycle, err error) {
	outcome := "planned"
	errStr := ""
	if err != nil {
		outcome = "failed"
		if errors.Is(err, model.ErrData) {
			outcome = "skipped"
		}
		errStr = err.Error()
		s.logger.Errorf("cycle %s %s: %v", c.id, outcome, err)
		monitoring.CaptureException(err, map[string]string{
			"cycle_id": c.id,
			"system":   s.cfg.System.String(),
			"outcome":  outcome,
		})
	} else {
		s.logger.Infof("cycle %s planned %d hour(s) from %s", c.id, s.cfg.Horizon, c.start.Format(time.RFC3339))
	}
	cyclesTotal.WithLabelValues(s.cfg.Method.String(), outcome).Inc()

	ev := metrics.CycleEvent{
		CycleID:  c.id,
		System:   s.cfg.System.String(),
		Method:   s.cfg.Method.String(),
		Duration: time.Since(c.began),
		Skipped:  outcome == "skipped",
		Error:    errStr,
		Time:     c.start,
	}
	if c.result != nil {
		ev.Status = string(c.result.Status)
		ev.Objective = c.result.Objective
		ev.Peak = c.result.Peak
	}
	if rerr := s.sink.RecordCycle(ev); rerr != nil {
		s.logger.Errorf("cycle metrics error: %v", rerr)
	}
	if rec, ok := s.sink.(metrics.SetpointRecorder); ok && err == nil {
		if rerr := rec.RecordSetpoints(setpointEvents(c)); rerr != nil {
			s.logger.Errorf("setpoint metrics error: %v", rerr)
		}
	}

	if store := s.logStore(); store != nil {
		rec := logging.LogRecord{
			Timestamp: time.Now(),
			Kind:      logging.KindCycle,
			CycleID:   c.id,
			System:    s.cfg.System.String(),
			Method:    s.cfg.Method.String(),
			Outcome:   outcome,
			Error:     errStr,
		}
		if c.result != nil {
			rec.Status = string(c.result.Status)
			rec.Objective = c.result.Objective
		}
		if len(c.setpoints) > 0 {
			rec.Setpoints = make(map[string][]float64, len(c.setpoints))
			for k, v := range c.setpoints {
				rec.Setpoints[string(k)] = v
			}
		}
		if aerr := store.Append(ctx, rec); aerr != nil {
			s.logger.Errorf("cycle log error: %v", aerr)
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.CycleCompleted{
			CycleID:  c.id,
			At:       c.start,
			System:   s.cfg.System,
			Method:   s.cfg.Method,
			Result:   c.result,
			Duration: ev.Duration,
			Err:      err,
		})
	}
}

func setpointEvents(c *cycle) []metrics.SetpointEvent {
	var out []metrics.SetpointEvent
	kinds := make([]string, 0, len(c.setpoints))
	for k := range c.setpoints {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, name := range kinds {
		k := model.StorageKind(name)
		for i, v := range c.setpoints[k] {
			ev := metrics.SetpointEvent{
				CycleID:  c.id,
				Storage:  k,
				Hour:     c.start.Add(time.Duration(i) * time.Hour),
				Setpoint: v,
			}
			if c.result != nil {
				if tr, ok := c.result.Storages[k]; ok && i < len(tr.SoC) {
					ev.SoC = tr.SoC[i]
				}
			}
			out = append(out, ev)
		}
	}
	return out
}

// Latest returns the last plan, or nil before the first successful cycle.
func (s *RollingScheduler) Latest() *Plan {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.latest
}

func (s *RollingScheduler) setLatest(p *Plan) {
	s.pmu.Lock()
	s.latest = p
	s.pmu.Unlock()
}

// Pending lists the armed commands ordered by execution time.
func (s *RollingScheduler) Pending() []model.ActuationCommand {
	s.pmu.Lock()
	out := make([]model.ActuationCommand, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.cmd)
	}
	s.pmu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Storage < out[j].Storage
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Stop cancels every pending command. Cycles run after Stop arm nothing.
func (s *RollingScheduler) Stop() {
	s.pmu.Lock()
	s.stopped = true
	s.pmu.Unlock()
	s.cancelPending()
	s.cancel()
}

func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
