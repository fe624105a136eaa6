package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/ess-scheduler/api"
	"github.com/kilianp07/ess-scheduler/app/plugins"
	"github.com/kilianp07/ess-scheduler/auth"
	"github.com/kilianp07/ess-scheduler/config"
	"github.com/kilianp07/ess-scheduler/connectors"
	connfactory "github.com/kilianp07/ess-scheduler/connectors/factory"
	"github.com/kilianp07/ess-scheduler/core/actuation"
	"github.com/kilianp07/ess-scheduler/core/dispatch"
	dispatchlog "github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/guard"
	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
	coremon "github.com/kilianp07/ess-scheduler/core/monitoring"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	"github.com/kilianp07/ess-scheduler/infra/metrics"
	infmon "github.com/kilianp07/ess-scheduler/infra/monitoring"
	"github.com/kilianp07/ess-scheduler/infra/mqtt"
	"github.com/kilianp07/ess-scheduler/infra/retry"
	"github.com/kilianp07/ess-scheduler/infra/telemetry"
	"github.com/kilianp07/ess-scheduler/internal/eventbus"
)

// Service wires telemetry, the rolling scheduler and the actuators.
type Service struct {
	cfg       *config.Config
	Scheduler *scheduler.RollingScheduler
	State     *scheduler.StateStore

	client    *mqtt.PahoClient
	telemetry *telemetry.Manager
	prices    *connectors.PriceFeed
	sink      coremetrics.MetricsSink
	store     dispatchlog.LogStore
	bus       *eventbus.Bus
	loc       *time.Location
	log       logger.Logger
	now       func() time.Time
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	logg := logger.New("service")

	monitor, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(monitor)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	state, err := NewState(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	pub := mqtt.NewSchedulePublisher(client, mqtt.ScheduleTopic(cfg.Campus, cfg.Building, cfg.Device))
	retryLog := logger.New("retry")
	exec := actuation.NewExecutor(
		guard.New(cfg.GuardConfig()),
		mqtt.NewActuator(client, cfg.MQTT.AckTimeout()),
		pub,
		state,
		retry.New(cfg.Retry, func(err error, wait time.Duration) {
			retryLog.Warnf("actuation failed, retrying in %s: %v", wait, err)
		}),
		logger.New("actuation"),
	)

	opt, err := NewOptimizer(cfg)
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	sc, err := cfg.SchedulerConfig()
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	bus := eventbus.New()
	sched, err := scheduler.NewRollingScheduler(sc, state, opt, exec, pub, sink, bus, logger.New("scheduler"))
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	store, err := plugins.NewLogStore(cfg.Logging.Backend, cfg.Logging.Module())
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("cycle log: %w", err)
	}
	sched.SetLogStore(store)

	svc := &Service{
		cfg:       cfg,
		Scheduler: sched,
		State:     state,
		client:    client,
		sink:      sink,
		store:     store,
		bus:       bus,
		loc:       loc,
		log:       logg,
		now:       time.Now,
	}
	if cfg.Telemetry.Enabled {
		system, _ := cfg.System()
		svc.telemetry, err = telemetry.NewManager(cfg.MQTT, cfg.Telemetry, system, cfg.Forecast.Streamed(), state, bus)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}
	if cfg.RTE.Enabled {
		svc.prices, err = NewPriceFeed(cfg.RTE, loc)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

// NewState builds the state store with the initial storage states and the
// static forecasts.
func NewState(cfg *config.Config) (*scheduler.StateStore, error) {
	state := scheduler.NewStateStore(cfg.WindowLength)
	for _, st := range cfg.StorageStates() {
		state.SetStorage(st)
	}
	profile, err := cfg.Forecast.Profile()
	if err != nil {
		return nil, err
	}
	for field, v := range map[model.ForecastField][]float64{
		model.FieldPrice:              profile.Price,
		model.FieldLoad:               profile.Load,
		model.FieldUncontrollableLoad: profile.UncontrollableLoad,
	} {
		if len(v) > 0 {
			state.SetForecast(field, v)
		}
	}
	return state, nil
}

// NewOptimizer builds the optimizer for planned methods. The direct method
// needs none and gets nil.
func NewOptimizer(cfg *config.Config) (scheduler.Optimizer, error) {
	if method, _ := model.ParseMethod(cfg.Method); method == model.MethodDirect {
		return nil, nil
	}
	solver, err := plugins.NewSolver(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	dc, err := cfg.DispatchConfig()
	if err != nil {
		return nil, err
	}
	return dispatch.NewOptimizer(dc, solver, logger.New("optimizer"))
}

// NewPriceFeed builds the day-ahead price feed of the configured client.
func NewPriceFeed(cfg config.RTEConfig, loc *time.Location) (*connectors.PriceFeed, error) {
	client, err := connfactory.NewRTEClient(cfg.Client, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	options, err := connfactory.PriceOptions(cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	return connectors.NewPriceFeed(client, auth.NewClientCred(cfg.Auth), options, loc), nil
}

// Run starts every component and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("collector"))
	if s.telemetry != nil {
		go func() {
			if err := s.telemetry.Start(ctx); err != nil {
				s.log.Errorf("telemetry: %v", err)
			}
		}()
	}
	if s.cfg.Metrics.PrometheusPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled() {
		go func() {
			h := api.NewMux(s.Scheduler, s.store, s.cfg.API.Token)
			if err := api.Serve(ctx, s.cfg.API.Addr, h); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if s.prices != nil {
		s.refreshPrices(ctx)
		if _, err := c.AddFunc(s.cfg.RTE.RefreshCron, func() { s.refreshPrices(ctx) }); err != nil {
			return fmt.Errorf("%w: rte refresh_cron: %w", model.ErrConfig, err)
		}
	}
	if method, _ := model.ParseMethod(s.cfg.Method); method != model.MethodDirect {
		if _, err := c.AddFunc(s.cfg.RunSchedule, func() { s.runCycle(ctx) }); err != nil {
			return fmt.Errorf("%w: run_schedule: %w", model.ErrConfig, err)
		}
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	if at, ok := s.cfg.FirstRun(s.now().In(s.loc)); ok {
		s.log.Infof("first cycle at %s", at.Format(time.RFC3339))
		t := time.AfterFunc(time.Until(at), func() { s.runCycle(ctx) })
		defer t.Stop()
	}
	<-ctx.Done()
	return nil
}

func (s *Service) runCycle(ctx context.Context) {
	defer coremon.Recover()
	if ctx.Err() != nil {
		return
	}
	if err := s.Scheduler.RunCycle(ctx, s.now().In(s.loc)); err != nil && !errors.Is(err, model.ErrData) {
		s.log.Errorf("cycle: %v", err)
	}
}

func (s *Service) refreshPrices(ctx context.Context) {
	if err := UpdatePrices(ctx, s.prices, s.State, s.now().In(s.loc), s.log); err != nil {
		s.log.Errorf("day-ahead prices: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "prices"})
	}
}

// UpdatePrices sets the price forecast to the next 24 hours of day-ahead
// prices as seen shortly after now. Tomorrow's prices are optional until
// they are published. On error the current forecast is kept.
func UpdatePrices(ctx context.Context, feed *connectors.PriceFeed, state *scheduler.StateStore, now time.Time, log logger.Logger) error {
	next := now.Add(10 * time.Minute)
	today, err := feed.DayAhead(ctx, next)
	if err != nil {
		return err
	}
	tomorrow, err := feed.DayAhead(ctx, next.AddDate(0, 0, 1))
	if err != nil {
		log.Warnf("next day prices not available: %v", err)
	}
	state.SetForecast(model.FieldPrice, connectors.Upcoming(today, tomorrow, next.Hour()))
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Scheduler.Stop()
	if s.client != nil {
		s.client.Disconnect()
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("event bus dropped %d deliveries", n)
	}
	s.bus.Close()
	coremon.Flush(2 * time.Second)
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

type cronLogger struct{ log logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}

func fields(kv []interface{}) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
