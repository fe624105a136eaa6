package gonumlp

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/ess-scheduler/core/optim"
	"gonum.org/v1/gonum/floats"
)

const (
	pivotTol = 1e-9
	// blandAfter is the number of consecutive degenerate pivots after which
	// the entering column is chosen by Bland's rule.
	blandAfter = 50
)

var errStalled = errors.New("simplex iteration limit reached")

// tableau is a dense two-phase simplex tableau. Row m holds the reduced
// costs and column n the right hand side. Every row starts with a slack or
// an artificial column in the basis, so no initial basis search is needed.
type tableau struct {
	m, n  int
	data  []float64
	basis []int
	// art is the first artificial column.
	art   int
	tol   float64
	scale float64
}

// tableau solves the form with a dense tableau. Each pivot costs
// O(rows*columns), which keeps horizons of a day fast where lp.Simplex
// refactors its basis at every step.
func (f stdForm) tableau(tol float64) ([]float64, error) {
	t := newTableau(f, tol)
	if t.art < t.n {
		if err := t.phaseOne(); err != nil {
			return nil, err
		}
	}
	t.setObjective(f.cost)
	if err := t.iterate(t.art); err != nil {
		return nil, err
	}
	y := make([]float64, len(f.cost))
	for i, col := range t.basis {
		if col < len(f.cost) {
			y[col] = math.Max(t.at(i, t.n), 0)
		}
	}
	return y, nil
}

func newTableau(f stdForm, tol float64) *tableau {
	nk := len(f.cost)
	senses := make([]optim.Sense, len(f.rows))
	signs := make([]float64, len(f.rows))
	slacks, arts := 0, 0
	for i, row := range f.rows {
		sign, sense := orient(row)
		// x >= 0 rows are cheaper as -x <= 0.
		if sense == optim.GE && row.rhs == 0 {
			sign, sense = -sign, optim.LE
		}
		signs[i], senses[i] = sign, sense
		if sense != optim.EQ {
			slacks++
		}
		if sense != optim.LE {
			arts++
		}
	}

	t := &tableau{
		m:     len(f.rows),
		n:     nk + slacks + arts,
		art:   nk + slacks,
		basis: make([]int, len(f.rows)),
		tol:   tol,
		scale: 1,
	}
	t.data = make([]float64, (t.m+1)*(t.n+1))
	s, a := nk, t.art
	for i, row := range f.rows {
		r := t.row(i)
		for col, v := range row.coef {
			r[col] = signs[i] * v
		}
		r[t.n] = math.Abs(row.rhs)
		t.scale = math.Max(t.scale, r[t.n])
		switch senses[i] {
		case optim.LE:
			r[s] = 1
			t.basis[i] = s
			s++
		case optim.GE:
			r[s] = -1
			s++
			r[a] = 1
			t.basis[i] = a
			a++
		default:
			r[a] = 1
			t.basis[i] = a
			a++
		}
	}
	return t
}

func (t *tableau) row(i int) []float64 {
	w := t.n + 1
	return t.data[i*w : (i+1)*w]
}

func (t *tableau) at(i, j int) float64 { return t.data[i*(t.n+1)+j] }

// phaseOne minimizes the sum of the artificial columns, then pivots the
// artificials that remain basic at zero out of the basis where the row
// allows it. Rows that do not are redundant and keep their artificial.
func (t *tableau) phaseOne() error {
	cost := make([]float64, t.n)
	for j := t.art; j < t.n; j++ {
		cost[j] = 1
	}
	t.setObjective(cost)
	if err := t.iterate(t.n); err != nil {
		if errors.Is(err, optim.ErrUnbounded) {
			return fmt.Errorf("%w: phase one reported unbounded", errNumeric)
		}
		return err
	}
	if -t.at(t.m, t.n) > 1e-7*t.scale {
		return optim.ErrInfeasible
	}
	for i := 0; i < t.m; i++ {
		if t.basis[i] < t.art {
			continue
		}
		r := t.row(i)
		col, best := -1, 1e-7
		for j := 0; j < t.art; j++ {
			if v := math.Abs(r[j]); v > best {
				col, best = j, v
			}
		}
		if col >= 0 {
			r[t.n] = 0
			t.pivot(i, col)
		}
	}
	return nil
}

// setObjective writes the reduced costs of cost for the current basis. cost
// may be shorter than the tableau; missing entries are zero.
func (t *tableau) setObjective(cost []float64) {
	obj := t.row(t.m)
	for j := range obj {
		obj[j] = 0
	}
	copy(obj, cost)
	for i, col := range t.basis {
		if col >= len(cost) || cost[col] == 0 {
			continue
		}
		floats.AddScaled(obj, -cost[col], t.row(i))
	}
}

// iterate pivots until no column below limit has a negative reduced cost.
// The entering column is the most negative one until too many degenerate
// pivots happen in a row; Bland's rule then prevents cycling.
func (t *tableau) iterate(limit int) error {
	obj := t.row(t.m)
	degenerate := 0
	maxIter := 50*(t.m+t.n) + 1000
	for it := 0; it < maxIter; it++ {
		enter := -1
		if degenerate < blandAfter {
			most := -t.tol
			for j := 0; j < limit; j++ {
				if obj[j] < most {
					enter, most = j, obj[j]
				}
			}
		} else {
			for j := 0; j < limit; j++ {
				if obj[j] < -t.tol {
					enter = j
					break
				}
			}
		}
		if enter < 0 {
			return nil
		}

		leave, best := -1, math.Inf(1)
		for i := 0; i < t.m; i++ {
			a := t.at(i, enter)
			if a <= pivotTol {
				continue
			}
			ratio := math.Max(t.at(i, t.n), 0) / a
			switch {
			case ratio < best-1e-12:
				leave, best = i, ratio
			case ratio <= best+1e-12 && t.basis[i] < t.basis[leave]:
				leave, best = i, ratio
			}
		}
		if leave < 0 {
			return optim.ErrUnbounded
		}
		if best <= 1e-12 {
			degenerate++
		} else {
			degenerate = 0
		}
		t.pivot(leave, enter)
	}
	return errStalled
}

func (t *tableau) pivot(r, c int) {
	pr := t.row(r)
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i := 0; i <= t.m; i++ {
		if i == r {
			continue
		}
		ri := t.row(i)
		f := ri[c]
		if f == 0 {
			continue
		}
		floats.AddScaled(ri, -f, pr)
		ri[c] = 0
	}
	t.basis[r] = c
}
