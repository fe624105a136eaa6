// Package gonumlp implements optim.Solver on top of the gonum simplex.
// Binary variables are handled by branch and bound and curve bounds by
// sequential linearization around the previous solution.
package gonumlp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/core/factory"
	"github.com/kilianp07/ess-scheduler/core/optim"
	"github.com/kilianp07/ess-scheduler/infra/logger"
)

// Config tunes the solver.
type Config struct {
	// Tolerance is the reduced cost tolerance passed to the simplex.
	Tolerance float64 `json:"tolerance"`
	// MaxNodes caps the branch and bound search per linearization.
	MaxNodes int `json:"max_nodes"`
	// MaxIterations caps the number of curve linearizations.
	MaxIterations int `json:"max_iterations"`
	// StateTolerance is the largest change of a curve state between two
	// linearizations that counts as converged.
	StateTolerance float64 `json:"state_tolerance"`
	// Gap is the relative objective gap under which branch and bound stops
	// exploring a node.
	Gap float64 `json:"gap"`
	// TimeLimit bounds one Solve call. When it passes, the best solution
	// found so far is returned as feasible.
	TimeLimit time.Duration `json:"time_limit"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-9
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = 500
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.StateTolerance <= 0 {
		c.StateTolerance = 1e-3
	}
	if c.Gap <= 0 {
		c.Gap = 1e-4
	}
	if c.TimeLimit <= 0 {
		c.TimeLimit = 30 * time.Second
	}
}

// Solver solves optim problems with gonum.
type Solver struct {
	cfg    Config
	logger logger.Logger
}

// New returns a Solver. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Solver {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Solver{cfg: cfg, logger: log}
}

// NewFromModule builds a Solver from a generic module configuration.
func NewFromModule(conf map[string]any, log logger.Logger) (*Solver, error) {
	var cfg Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("decode solver config: %w", err)
	}
	return New(cfg, log), nil
}

// Solve implements optim.Solver. When a linearization pass fails after an
// earlier one succeeded, or the time limit passes, the best earlier result
// is returned with status Feasible.
func (s *Solver) Solve(ctx context.Context, p *optim.Problem) (*optim.Solution, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(s.cfg.TimeLimit)
	vars := p.Vars()
	cost := p.Cost()
	base := p.Rows()
	curves := p.Curves()

	var (
		res       *mipResult
		fit       *mipResult
		at        []float64
		points    []float64
		converged bool
		stopped   bool
		iters     int
		nodes     int
	)
	for iters < s.cfg.MaxIterations || res == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res != nil && !time.Now().Before(deadline) {
			s.logger.Warnf("solver time limit of %s reached after %d linearizations", s.cfg.TimeLimit, iters)
			stopped = true
			break
		}
		iters++
		rows := append([]optim.Row(nil), base...)
		var cuts []optim.Row
		cuts, points = linearize(curves, vars, at)
		rows = append(rows, cuts...)

		if len(cuts) < len(curves) {
			// Some states have no value yet: take them from the continuous
			// relaxation before branching.
			warm, err := s.relax(vars, cost, rows)
			switch {
			case err == nil:
				at = warm.x
			case errors.Is(err, optim.ErrInfeasible), errors.Is(err, optim.ErrUnbounded):
				return nil, err
			default:
				s.logger.Warnf("continuous relaxation failed, linearizing at the bounds: %v", err)
				at = nearZero(vars)
			}
			continue
		}

		// Each pass may use half of the remaining time so that later
		// linearizations still run. The previous integer assignment seeds
		// the search, which keeps modes stable between passes.
		var hint []float64
		if res != nil {
			hint = res.x
		}
		pass := time.Now().Add(time.Until(deadline) / 2)
		next, err := s.branchAndBound(ctx, pass, vars, cost, rows, hint)
		if err != nil {
			if res == nil || ctx.Err() != nil || errors.Is(err, optim.ErrUnbounded) {
				return nil, err
			}
			s.logger.Warnf("linearization %d failed, keeping the previous one: %v", iters, err)
			stopped = true
			break
		}
		nodes += next.nodes
		res = next
		at = res.x
		if curveViolation(curves, res.x) <= curveTol && (fit == nil || res.obj < fit.obj) {
			fit = res
		}
		converged = curvesConverged(curves, points, res.x, s.cfg.StateTolerance)
		if converged {
			break
		}
	}
	if !converged && len(curves) > 0 {
		s.logger.Warnf("curve linearization did not converge after %d iterations", iters)
		if fit != nil {
			res = fit
		}
	}

	status := optim.Optimal
	if stopped || !converged || !res.complete {
		status = optim.Feasible
	}
	return &optim.Solution{
		Status:     status,
		Values:     res.x,
		Objective:  p.Evaluate(res.x),
		Nodes:      nodes,
		Iterations: iters,
	}, nil
}

// nearZero returns the point of every variable range closest to zero.
func nearZero(vars []optim.Var) []float64 {
	x := make([]float64, len(vars))
	for j, v := range vars {
		x[j] = math.Min(math.Max(0, v.Lo), v.Hi)
	}
	return x
}

// relax solves the continuous relaxation of the problem.
func (s *Solver) relax(vars []optim.Var, cost []float64, rows []optim.Row) (*lpResult, error) {
	lo := make([]float64, len(vars))
	hi := make([]float64, len(vars))
	for j, v := range vars {
		lo[j], hi[j] = v.Lo, v.Hi
	}
	return relaxation{cost: cost, lo: lo, hi: hi, rows: rows, tol: s.cfg.Tolerance}.solve()
}

// linearize turns every curve bound into a linear row evaluated at the
// states of x. States pinned by their bounds are evaluated exactly from the
// first iteration; other curves are skipped while x is nil. The returned
// points are NaN for skipped curves.
func linearize(curves []optim.CurveBound, vars []optim.Var, x []float64) ([]optim.Row, []float64) {
	rows := make([]optim.Row, 0, len(curves))
	points := make([]float64, len(curves))
	for k, c := range curves {
		state := vars[c.State]
		var at float64
		switch {
		case state.Fixed():
			at = state.Lo
		case x != nil:
			at = x[c.State]
		default:
			points[k] = math.NaN()
			continue
		}
		points[k] = at
		bound := math.Max(0, c.Curve(at))
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			bound = 0
		}
		switch {
		case c.Gate == optim.NoVar:
			rows = append(rows, optim.Row{Name: c.Name, Sense: optim.LE, RHS: bound,
				Terms: []optim.Term{optim.T(c.Target, 1)}})
		case c.GateInverted:
			rows = append(rows, optim.Row{Name: c.Name, Sense: optim.LE, RHS: bound,
				Terms: []optim.Term{optim.T(c.Target, 1), optim.T(c.Gate, bound)}})
		default:
			rows = append(rows, optim.Row{Name: c.Name, Sense: optim.LE, RHS: 0,
				Terms: []optim.Term{optim.T(c.Target, 1), optim.T(c.Gate, -bound)}})
		}
	}
	return rows, points
}

// curveTol is the absolute slack under which a curve bound counts as met at
// the state of the solution itself.
const curveTol = 1e-6

// curveViolation returns the largest excess of a curve target over its
// gated bound evaluated at the state of x.
func curveViolation(curves []optim.CurveBound, x []float64) float64 {
	worst := 0.0
	for _, c := range curves {
		bound := math.Max(0, c.Curve(x[c.State]))
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			bound = 0
		}
		switch {
		case c.Gate == optim.NoVar:
		case c.GateInverted:
			bound *= 1 - x[c.Gate]
		default:
			bound *= x[c.Gate]
		}
		worst = math.Max(worst, x[c.Target]-bound)
	}
	return worst
}

func curvesConverged(curves []optim.CurveBound, points, x []float64, tol float64) bool {
	for k, c := range curves {
		if math.IsNaN(points[k]) {
			return false
		}
		if math.Abs(x[c.State]-points[k]) > tol {
			return false
		}
	}
	return true
}
