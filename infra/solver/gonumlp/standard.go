package gonumlp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/ess-scheduler/core/optim"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpSimplex points to the simplex implementation. Tests override it to
// simulate numerical failures.
var lpSimplex = lp.Simplex

const boundEps = 1e-9

// errNumeric reports that no strategy could solve a relaxation for numerical
// reasons. The relaxation may still be feasible.
var errNumeric = errors.New("numerical failure")

// varMap expresses an original variable as offset + sum(sign * y[col]).
type varMap struct {
	offset float64
	cols   []int
	signs  []float64
}

type stdRow struct {
	coef  map[int]float64
	sense optim.Sense
	rhs   float64
}

// stdForm is min cost·y subject to rows, y >= 0. Columns are dense.
type stdForm struct {
	rows []stdRow
	cost []float64
}

// strategy is one way of solving a standard form. Strategies are tried in
// order until one of them returns a solution or proves the form infeasible or
// unbounded.
type strategy struct {
	name    string
	engine  func(f stdForm, tol float64) ([]float64, error)
	dedupe  bool
	splitEq bool
}

var strategies = []strategy{
	{name: "tableau", engine: stdForm.tableau},
	{name: "simplex", engine: stdForm.simplex, dedupe: true},
	{name: "simplex split", engine: stdForm.simplex, dedupe: true, splitEq: true},
}

// relaxation is one LP relaxation: the problem rows plus bound overrides.
type relaxation struct {
	cost []float64
	lo   []float64
	hi   []float64
	rows []optim.Row
	tol  float64
}

type lpResult struct {
	x   []float64
	obj float64
}

// solve converts the relaxation into a standard form, solves it with the
// first strategy that succeeds and maps the result back onto the original
// variables.
func (r relaxation) solve() (*lpResult, error) {
	form, maps, cols, err := r.standardize()
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, st := range strategies {
		y, err := st.run(form, r.tol)
		switch {
		case err == nil:
			return r.result(maps, cols, y), nil
		case errors.Is(err, optim.ErrInfeasible), errors.Is(err, optim.ErrUnbounded):
			return nil, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
	}
	return nil, fmt.Errorf("%w: %w", errNumeric, errors.Join(errs...))
}

func (st strategy) run(f stdForm, tol float64) ([]float64, error) {
	if len(f.rows) == 0 {
		return make([]float64, len(f.cost)), nil
	}
	rows := f.rows
	if st.dedupe {
		rows = dedupe(rows)
	}
	if st.splitEq {
		rows = splitEqualities(rows)
	}
	y, err := st.engine(stdForm{rows: rows, cost: f.cost}, tol)
	if err != nil {
		return nil, err
	}
	if len(y) != len(f.cost) {
		return nil, fmt.Errorf("solution has %d columns, want %d", len(y), len(f.cost))
	}
	for j := range y {
		y[j] = math.Max(y[j], 0)
	}
	if i, gap := f.residual(y); i >= 0 {
		return nil, fmt.Errorf("row %d violated by %g", i, gap)
	}
	return y, nil
}

// standardize shifts and splits variables so that every column is
// non-negative, adds finite upper bounds as rows and drops columns that no
// row uses. cols maps the columns of the form back to the columns of maps.
func (r relaxation) standardize() (stdForm, []varMap, []int, error) {
	nv := len(r.cost)
	maps := make([]varMap, nv)
	ncols := 0
	type ubRow struct {
		col int
		rhs float64
	}
	var ubs []ubRow
	for j := 0; j < nv; j++ {
		lo, hi := r.lo[j], r.hi[j]
		if lo > hi+boundEps {
			return stdForm{}, nil, nil, optim.ErrInfeasible
		}
		loInf, hiInf := math.IsInf(lo, -1), math.IsInf(hi, 1)
		switch {
		case !loInf && !hiInf && hi-lo <= boundEps:
			maps[j] = varMap{offset: lo}
		case !loInf:
			maps[j] = varMap{offset: lo, cols: []int{ncols}, signs: []float64{1}}
			if !hiInf {
				ubs = append(ubs, ubRow{col: ncols, rhs: hi - lo})
			}
			ncols++
		case !hiInf:
			maps[j] = varMap{offset: hi, cols: []int{ncols}, signs: []float64{-1}}
			ncols++
		default:
			maps[j] = varMap{cols: []int{ncols, ncols + 1}, signs: []float64{1, -1}}
			ncols += 2
		}
	}

	c := make([]float64, ncols)
	for j, m := range maps {
		for k, col := range m.cols {
			c[col] += r.cost[j] * m.signs[k]
		}
	}

	var rows []stdRow
	used := make([]bool, ncols)
	for _, row := range r.rows {
		sr := stdRow{coef: map[int]float64{}, sense: row.Sense, rhs: row.RHS}
		for _, t := range row.Terms {
			m := maps[t.Var]
			sr.rhs -= t.Coef * m.offset
			for k, col := range m.cols {
				sr.coef[col] += t.Coef * m.signs[k]
			}
		}
		for col, v := range sr.coef {
			if math.Abs(v) < 1e-12 {
				delete(sr.coef, col)
			}
		}
		if len(sr.coef) == 0 {
			if !constantHolds(sr.sense, sr.rhs) {
				return stdForm{}, nil, nil, optim.ErrInfeasible
			}
			continue
		}
		for col := range sr.coef {
			used[col] = true
		}
		rows = append(rows, sr)
	}
	for _, ub := range ubs {
		used[ub.col] = true
		rows = append(rows, stdRow{coef: map[int]float64{ub.col: 1}, sense: optim.LE, rhs: ub.rhs})
	}

	// Columns absent from every row stay at zero unless that lowers the cost
	// without limit.
	keep := make([]int, ncols)
	var cols []int
	for col := 0; col < ncols; col++ {
		if !used[col] {
			if c[col] < -r.tol {
				return stdForm{}, nil, nil, optim.ErrUnbounded
			}
			keep[col] = -1
			continue
		}
		keep[col] = len(cols)
		cols = append(cols, col)
	}

	form := stdForm{rows: make([]stdRow, len(rows)), cost: make([]float64, len(cols))}
	for k, col := range cols {
		form.cost[k] = c[col]
	}
	for i, row := range rows {
		coef := make(map[int]float64, len(row.coef))
		for col, v := range row.coef {
			coef[keep[col]] = v
		}
		form.rows[i] = stdRow{coef: coef, sense: row.sense, rhs: row.rhs}
	}
	return form, maps, cols, nil
}

func (r relaxation) result(maps []varMap, cols []int, sol []float64) *lpResult {
	ncols := 0
	for _, m := range maps {
		for _, col := range m.cols {
			ncols = max(ncols, col+1)
		}
	}
	y := make([]float64, ncols)
	for k, col := range cols {
		y[col] = sol[k]
	}
	x := make([]float64, len(maps))
	obj := 0.0
	for j, m := range maps {
		v := m.offset
		for k, col := range m.cols {
			v += m.signs[k] * y[col]
		}
		x[j] = v
		obj += r.cost[j] * v
	}
	return &lpResult{x: x, obj: obj}
}

// residual returns the first row violated by y beyond a tolerance scaled to
// the row, or -1.
func (f stdForm) residual(y []float64) (int, float64) {
	for i, row := range f.rows {
		lhs, scale := 0.0, math.Max(1, math.Abs(row.rhs))
		for col, v := range row.coef {
			lhs += v * y[col]
			scale = math.Max(scale, math.Abs(v*y[col]))
		}
		var gap float64
		switch row.sense {
		case optim.LE:
			gap = lhs - row.rhs
		case optim.GE:
			gap = row.rhs - lhs
		default:
			gap = math.Abs(lhs - row.rhs)
		}
		if gap > 1e-6*scale {
			return i, gap
		}
	}
	return -1, 0
}

// dedupe drops rows that repeat an earlier row exactly.
func dedupe(rows []stdRow) []stdRow {
	seen := make(map[string]bool, len(rows))
	out := make([]stdRow, 0, len(rows))
	for _, row := range rows {
		k := row.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	return out
}

func (row stdRow) key() string {
	cols := make([]int, 0, len(row.coef))
	for col := range row.coef {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(row.sense)))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(row.rhs, 'g', -1, 64))
	for _, col := range cols {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(col))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(row.coef[col], 'g', -1, 64))
	}
	return b.String()
}

func splitEqualities(rows []stdRow) []stdRow {
	out := make([]stdRow, 0, len(rows))
	for _, row := range rows {
		if row.sense != optim.EQ {
			out = append(out, row)
			continue
		}
		out = append(out,
			stdRow{coef: row.coef, sense: optim.LE, rhs: row.rhs},
			stdRow{coef: row.coef, sense: optim.GE, rhs: row.rhs})
	}
	return out
}

// simplex assembles A y = b with one slack column per inequality row and
// runs lp.Simplex. Every failure other than infeasibility or unboundedness
// is reported as numerical.
func (f stdForm) simplex(tol float64) ([]float64, error) {
	nk := len(f.cost)
	m := len(f.rows)
	slacks := 0
	for _, row := range f.rows {
		if row.sense != optim.EQ {
			slacks++
		}
	}
	n := nk + slacks
	if m > n {
		return nil, fmt.Errorf("%w: %d rows for %d columns", errNumeric, m, n)
	}
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	cost := make([]float64, n)
	copy(cost, f.cost)
	s := nk
	for i, row := range f.rows {
		sign, sense := orient(row)
		for col, v := range row.coef {
			A.Set(i, col, sign*v)
		}
		b[i] = sign * row.rhs
		switch sense {
		case optim.LE:
			A.Set(i, s, 1)
			s++
		case optim.GE:
			A.Set(i, s, -1)
			s++
		}
	}

	_, sol, err := runSimplex(cost, A, b, tol)
	switch {
	case err == nil:
		return sol[:nk], nil
	case errors.Is(err, lp.ErrInfeasible):
		return nil, optim.ErrInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, optim.ErrUnbounded
	default:
		return nil, fmt.Errorf("%w: %w", errNumeric, err)
	}
}

// orient returns the sign that makes the right hand side of row
// non-negative and the sense of the row once multiplied by it.
func orient(row stdRow) (float64, optim.Sense) {
	if row.rhs >= 0 {
		return 1, row.sense
	}
	switch row.sense {
	case optim.LE:
		return -1, optim.GE
	case optim.GE:
		return -1, optim.LE
	}
	return -1, row.sense
}

func runSimplex(c []float64, A mat.Matrix, b []float64, tol float64) (opt float64, x []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("simplex panic: %v", rec)
		}
	}()
	return lpSimplex(c, A, b, tol, nil)
}

func constantHolds(sense optim.Sense, rhs float64) bool {
	const eps = 1e-7
	switch sense {
	case optim.LE:
		return 0 <= rhs+eps
	case optim.GE:
		return 0 >= rhs-eps
	default:
		return math.Abs(rhs) <= eps
	}
}
