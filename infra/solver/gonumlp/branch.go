package gonumlp

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/core/optim"
)

const intTol = 1e-6

// roundEvery is the depth interval at which the rounding heuristic runs
// while no incumbent exists.
const roundEvery = 8

type node struct {
	lo, hi []float64
	depth  int
}

type mipResult struct {
	x        []float64
	obj      float64
	nodes    int
	complete bool
}

// search is the state of one branch and bound run.
type search struct {
	s      *Solver
	vars   []optim.Var
	cost   []float64
	rows   []optim.Row
	rowsOf [][]int

	best    *lpResult
	bestObj float64
}

func (s *Solver) newSearch(vars []optim.Var, cost []float64, rows []optim.Row) *search {
	sr := &search{s: s, vars: vars, cost: cost, rows: rows, bestObj: math.Inf(1)}
	sr.rowsOf = make([][]int, len(vars))
	for i, row := range rows {
		for _, t := range row.Terms {
			sr.rowsOf[t.Var] = append(sr.rowsOf[t.Var], i)
		}
	}
	return sr
}

// branchAndBound solves the mixed-integer problem depth first, branching on
// the most fractional integer variable and exploring the nearest rounding
// first. Nodes whose relaxation cannot improve the incumbent by more than
// the configured gap are pruned. The search stops with the incumbent when
// the deadline passes or the node budget is spent. A non-nil hint supplies
// an integer assignment tried as the first incumbent.
func (s *Solver) branchAndBound(ctx context.Context, deadline time.Time, vars []optim.Var, cost []float64, rows []optim.Row, hint []float64) (*mipResult, error) {
	root := node{lo: make([]float64, len(vars)), hi: make([]float64, len(vars))}
	for j, v := range vars {
		root.lo[j], root.hi[j] = v.Lo, v.Hi
		if v.Integer {
			root.lo[j] = math.Ceil(v.Lo - intTol)
			root.hi[j] = math.Floor(v.Hi + intTol)
		}
	}

	sr := s.newSearch(vars, cost, rows)
	if hint != nil {
		if inc := sr.round(root, hint); inc != nil {
			sr.accept(inc)
		}
	}
	nodes := 0
	complete := true
	stack := []node{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= s.cfg.MaxNodes || (nodes > 0 && !time.Now().Before(deadline)) {
			s.logger.Debugf("branch and bound stopped after %d nodes", nodes)
			complete = false
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		rel := relaxation{cost: cost, lo: nd.lo, hi: nd.hi, rows: rows, tol: s.cfg.Tolerance}
		res, err := rel.solve()
		if err != nil {
			switch {
			case errors.Is(err, optim.ErrInfeasible):
				continue
			case errors.Is(err, optim.ErrUnbounded):
				return nil, err
			}
			if nd.depth == 0 {
				return nil, err
			}
			s.logger.Warnf("relaxation failed at depth %d: %v", nd.depth, err)
			complete = false
			continue
		}
		if sr.pruned(res.obj) {
			continue
		}

		branch := sr.mostFractional(res.x)
		if branch < 0 {
			sr.accept(res)
			continue
		}
		if sr.best == nil && nd.depth%roundEvery == 0 {
			if inc := sr.round(nd, res.x); inc != nil {
				sr.accept(inc)
				if sr.pruned(res.obj) {
					continue
				}
			}
		}

		val := res.x[branch]
		down := nd.child()
		down.hi[branch] = math.Floor(val)
		up := nd.child()
		up.lo[branch] = math.Ceil(val)
		if val-math.Floor(val) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	if sr.best == nil {
		if complete {
			return nil, optim.ErrInfeasible
		}
		return nil, errNoIncumbent
	}
	x := append([]float64(nil), sr.best.x...)
	for j, v := range vars {
		if v.Integer {
			x[j] = math.Round(x[j])
		}
	}
	return &mipResult{x: x, obj: sr.best.obj, nodes: nodes, complete: complete}, nil
}

var errNoIncumbent = errors.New("search stopped before an integer solution was found")

func (sr *search) accept(res *lpResult) {
	if sr.best == nil || res.obj < sr.bestObj {
		sr.best, sr.bestObj = res, res.obj
	}
}

// pruned reports whether a node bound cannot improve the incumbent by more
// than the relative gap.
func (sr *search) pruned(bound float64) bool {
	if sr.best == nil {
		return false
	}
	gap := math.Max(sr.s.cfg.Gap, 1e-9) * math.Max(1, math.Abs(sr.bestObj))
	return bound >= sr.bestObj-gap
}

func (sr *search) mostFractional(x []float64) int {
	branch, frac := -1, 0.0
	for j, v := range sr.vars {
		if !v.Integer {
			continue
		}
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > intTol && f > frac {
			branch, frac = j, f
		}
	}
	return branch
}

// round fixes every integer variable of the node to the rounding that
// violates its rows least, given the relaxation values of the other
// variables, and solves the remaining linear program. It returns nil when
// that program has no solution.
func (sr *search) round(nd node, x []float64) *lpResult {
	x = append([]float64(nil), x...)
	fixed := nd.child()
	for j, v := range sr.vars {
		if !v.Integer {
			continue
		}
		lo, hi := math.Floor(x[j]), math.Ceil(x[j])
		lo = math.Min(math.Max(lo, nd.lo[j]), nd.hi[j])
		hi = math.Min(math.Max(hi, nd.lo[j]), nd.hi[j])
		pick := math.Round(x[j])
		if lo != hi {
			vlo, vhi := sr.violation(j, lo, x), sr.violation(j, hi, x)
			switch {
			case vlo < vhi:
				pick = lo
			case vhi < vlo:
				pick = hi
			}
		}
		pick = math.Min(math.Max(pick, lo), hi)
		x[j] = pick
		fixed.lo[j], fixed.hi[j] = pick, pick
	}
	rel := relaxation{cost: sr.cost, lo: fixed.lo, hi: fixed.hi, rows: sr.rows, tol: sr.s.cfg.Tolerance}
	res, err := rel.solve()
	if err != nil {
		if !errors.Is(err, optim.ErrInfeasible) {
			sr.s.logger.Debugf("rounding heuristic failed: %v", err)
		}
		return nil
	}
	return res
}

// violation sums the violation of the rows of variable j when it takes
// value v and the others keep their values in x.
func (sr *search) violation(j int, v float64, x []float64) float64 {
	total := 0.0
	for _, i := range sr.rowsOf[j] {
		row := sr.rows[i]
		lhs := 0.0
		for _, t := range row.Terms {
			if int(t.Var) == j {
				lhs += t.Coef * v
			} else {
				lhs += t.Coef * x[t.Var]
			}
		}
		switch row.Sense {
		case optim.LE:
			total += math.Max(0, lhs-row.RHS)
		case optim.GE:
			total += math.Max(0, row.RHS-lhs)
		default:
			total += math.Abs(lhs - row.RHS)
		}
	}
	return total
}

func (n node) child() node {
	return node{
		lo:    append([]float64(nil), n.lo...),
		hi:    append([]float64(nil), n.hi...),
		depth: n.depth + 1,
	}
}
