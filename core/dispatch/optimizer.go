package dispatch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/core/logger"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/optim"
	"github.com/kilianp07/ess-scheduler/core/storage"
)

// CycleInput is the immutable input of one optimization.
type CycleInput struct {
	Start    time.Time
	Forecast model.ForecastWindow
	Battery  model.StorageState
	Thermal  model.StorageState
}

// Optimizer builds and solves the dispatch problem of a site.
type Optimizer struct {
	cfg    Config
	solver optim.Solver
	logger logger.Logger
}

// NewOptimizer validates the configuration and returns an Optimizer.
func NewOptimizer(cfg Config, solver optim.Solver, log logger.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		return nil, fmt.Errorf("%w: no solver configured", model.ErrConfig)
	}
	return &Optimizer{cfg: cfg, solver: solver, logger: log}, nil
}

// Config returns the optimizer configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// formulation keeps the variables needed to read a solution back.
type formulation struct {
	problem *optim.Problem
	battery *storage.Battery
	thermal *storage.Thermal
	peaks   []peakVar
	load    []float64
}

// Optimize computes the dispatch plan for one cycle. Solver failures are
// reported as model.ErrSolver and are never retried.
func (o *Optimizer) Optimize(ctx context.Context, in CycleInput) (*model.DispatchResult, error) {
	started := time.Now()
	system := o.cfg.System.String()
	f, err := o.build(in)
	if err != nil {
		solveFailures.WithLabelValues(system).Inc()
		return nil, err
	}
	sol, err := o.solver.Solve(ctx, f.problem)
	if err != nil {
		solveFailures.WithLabelValues(system).Inc()
		o.logger.Errorf("dispatch solve failed for %s: %v (%s)", system, err, f.problem.Summary())
		return nil, fmt.Errorf("%w: %w", model.ErrSolver, err)
	}
	res := o.extract(in, f, sol)
	solveLatency.WithLabelValues(system, string(res.Status)).Observe(time.Since(started).Seconds())
	plannedCost.WithLabelValues(system).Set(res.Objective)
	if o.cfg.Tariff.Mode == model.TariffTOU {
		for name, v := range res.Peaks {
			plannedPeak.WithLabelValues(system, name).Set(v)
		}
	} else {
		plannedPeak.WithLabelValues(system, "peak").Set(res.Peak)
	}
	o.logger.Debugw("dispatch solved", map[string]any{
		"system":     system,
		"status":     res.Status,
		"objective":  res.Objective,
		"nodes":      sol.Nodes,
		"iterations": sol.Iterations,
	})
	return res, nil
}

func (o *Optimizer) build(in CycleInput) (*formulation, error) {
	h := o.cfg.Horizon
	if err := in.Forecast.Validate(h); err != nil {
		return nil, err
	}
	p := optim.NewProblem()
	f := &formulation{problem: p, load: in.Forecast.Load()}

	var err error
	switch o.cfg.System {
	case model.SystemBattery:
		f.battery, err = storage.NewBattery(p, o.cfg.Battery, initialSoC(in.Battery, o.cfg.Battery.InitialSoC), h)
	case model.SystemThermal:
		f.thermal, err = storage.NewThermal(p, o.cfg.Thermal, initialSoC(in.Thermal, o.cfg.Thermal.InitialSoC), in.Forecast.CoolingLoad(), h)
	case model.SystemHybrid:
		f.battery, err = storage.NewBattery(p, o.cfg.Battery, initialSoC(in.Battery, o.cfg.Battery.InitialSoC), h)
		if err == nil {
			f.thermal, err = storage.NewThermal(p, o.cfg.Thermal, initialSoC(in.Thermal, o.cfg.Thermal.InitialSoC), in.Forecast.CoolingLoad(), h)
		}
	default:
		err = fmt.Errorf("%w: unknown system %d", model.ErrConfig, o.cfg.System)
	}
	if err != nil {
		return nil, err
	}

	price := in.Forecast.Price()
	uncontrollable := in.Forecast.UncontrollableLoad()
	for i := 0; i < h; i++ {
		terms := f.grid(i)
		// total[i] >= 0, and >= uncontrollable load when a chiller is modelled.
		floor := -f.load[i]
		if f.thermal != nil {
			floor = math.Max(floor, uncontrollable[i]-f.load[i])
		}
		p.AddRow(fmt.Sprintf("total_power_floor[%d]", i), optim.GE, floor, terms...)

		for _, t := range terms {
			p.Minimize(optim.T(t.Var, price[i]*t.Coef))
		}
		p.AddConstant(price[i] * f.load[i])
	}
	f.peaks = addDemandCharge(p, o.cfg.Tariff, in.Start, f.load, f.grid)
	return f, nil
}

// grid returns the controllable part of building power in hour i.
func (f *formulation) grid(i int) []optim.Term {
	var terms []optim.Term
	if f.battery != nil {
		terms = append(terms, f.battery.GridTerms(i)...)
	}
	if f.thermal != nil {
		terms = append(terms, f.thermal.GridTerms(i)...)
	}
	return terms
}

func (o *Optimizer) extract(in CycleInput, f *formulation, sol *optim.Solution) *model.DispatchResult {
	h := o.cfg.Horizon
	res := &model.DispatchResult{
		Start:      in.Start,
		System:     o.cfg.System,
		TotalPower: make([]float64, h),
		Storages:   map[model.StorageKind]model.StorageTrajectory{},
		Objective:  sol.Objective,
		Status:     model.StatusOptimal,
	}
	if sol.Status != optim.Optimal {
		res.Status = model.StatusFeasible
	}
	if f.battery != nil {
		res.Storages[model.StorageBattery] = f.battery.Extract(sol)
	}
	if f.thermal != nil {
		res.Storages[model.StorageThermal] = f.thermal.Extract(sol)
	}
	for i := 0; i < h; i++ {
		total := f.load[i]
		for _, t := range f.grid(i) {
			total += t.Coef * sol.Value(t.Var)
		}
		res.TotalPower[i] = roundNoise(total)
	}
	if o.cfg.Tariff.Mode == model.TariffTOU {
		res.Peaks = make(map[string]float64, len(f.peaks))
		for _, pk := range f.peaks {
			res.Peaks[pk.name] = roundNoise(sol.Value(pk.id))
		}
	} else if len(f.peaks) > 0 {
		res.Peak = roundNoise(sol.Value(f.peaks[0].id))
	}
	return res
}

func initialSoC(st model.StorageState, fallback float64) float64 {
	if st.Known() {
		return st.SoC
	}
	return fallback
}

func roundNoise(v float64) float64 {
	r := math.Round(v*1e9) / 1e9
	if r == 0 {
		return 0
	}
	return r
}
