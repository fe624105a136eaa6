package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInfeasible is returned when no assignment satisfies the constraints.
	ErrInfeasible = errors.New("problem is infeasible")
	// ErrUnbounded is returned when the objective can decrease without limit.
	ErrUnbounded = errors.New("problem is unbounded")
)

// Inf is a convenience alias for an absent bound.
var Inf = math.Inf(1)

// VarID references a variable of a Problem.
type VarID int

// NoVar marks an absent variable, for instance an ungated curve bound.
const NoVar VarID = -1

// Var is a decision variable.
type Var struct {
	Name    string
	Lo, Hi  float64
	Integer bool
}

// Fixed reports whether the bounds pin the variable to a single value.
func (v Var) Fixed() bool { return v.Lo == v.Hi }

// Term is a coefficient applied to a variable.
type Term struct {
	Var  VarID
	Coef float64
}

// T builds a Term.
func T(v VarID, coef float64) Term { return Term{Var: v, Coef: coef} }

// Sense is the comparison of a linear row.
type Sense int

const (
	// LE requires the row to be at most RHS.
	LE Sense = iota
	// GE requires the row to be at least RHS.
	GE
	// EQ requires the row to equal RHS.
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

// Row is a linear constraint sum(terms) <sense> RHS.
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// CurveBound caps Target by a nonlinear function of State, optionally gated
// by a binary variable:
//
//	Target <= Gate * Curve(State)        (GateInverted false)
//	Target <= (1 - Gate) * Curve(State)  (GateInverted true)
//
// Negative curve values are treated as zero.
type CurveBound struct {
	Name         string
	Target       VarID
	State        VarID
	Gate         VarID
	GateInverted bool
	Curve        func(float64) float64
}

// Problem is a minimization problem built fresh for every cycle.
type Problem struct {
	vars   []Var
	rows   []Row
	curves []CurveBound
	cost   []float64
	offset float64
}

// NewProblem returns an empty problem.
func NewProblem() *Problem { return &Problem{} }

// AddVar adds a variable and returns its identifier.
func (p *Problem) AddVar(name string, lo, hi float64, integer bool) VarID {
	p.vars = append(p.vars, Var{Name: name, Lo: lo, Hi: hi, Integer: integer})
	p.cost = append(p.cost, 0)
	return VarID(len(p.vars) - 1)
}

// Continuous adds a continuous variable in [lo, hi].
func (p *Problem) Continuous(name string, lo, hi float64) VarID {
	return p.AddVar(name, lo, hi, false)
}

// Binary adds a {0,1} variable.
func (p *Problem) Binary(name string) VarID { return p.AddVar(name, 0, 1, true) }

// Fixed adds a variable pinned to v.
func (p *Problem) Fixed(name string, v float64) VarID { return p.AddVar(name, v, v, false) }

// AddRow adds a linear constraint. Terms on the same variable are summed by
// the solver.
func (p *Problem) AddRow(name string, sense Sense, rhs float64, terms ...Term) {
	p.rows = append(p.rows, Row{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// AddCurveBound adds a gated nonlinear upper bound.
func (p *Problem) AddCurveBound(c CurveBound) { p.curves = append(p.curves, c) }

// Minimize adds terms to the objective.
func (p *Problem) Minimize(terms ...Term) {
	for _, t := range terms {
		p.cost[t.Var] += t.Coef
	}
}

// AddConstant adds a constant to the objective.
func (p *Problem) AddConstant(c float64) { p.offset += c }

// NumVars returns the number of variables added so far.
func (p *Problem) NumVars() int { return len(p.vars) }

// Var returns the definition of a variable.
func (p *Problem) Var(id VarID) Var { return p.vars[id] }

// Vars returns a copy of the variable definitions.
func (p *Problem) Vars() []Var { return append([]Var(nil), p.vars...) }

// Rows returns a copy of the linear rows.
func (p *Problem) Rows() []Row { return append([]Row(nil), p.rows...) }

// Curves returns a copy of the curve bounds.
func (p *Problem) Curves() []CurveBound { return append([]CurveBound(nil), p.curves...) }

// Cost returns a copy of the objective coefficients.
func (p *Problem) Cost() []float64 { return append([]float64(nil), p.cost...) }

// Constant returns the objective constant.
func (p *Problem) Constant() float64 { return p.offset }

// Evaluate computes the objective at x.
func (p *Problem) Evaluate(x []float64) float64 {
	f := p.offset
	for j, c := range p.cost {
		f += c * x[j]
	}
	return f
}

// Check validates indices, bounds and coefficients.
func (p *Problem) Check() error {
	n := VarID(len(p.vars))
	valid := func(v VarID) bool { return v >= 0 && v < n }
	for _, v := range p.vars {
		if math.IsNaN(v.Lo) || math.IsNaN(v.Hi) || v.Lo > v.Hi {
			return fmt.Errorf("variable %s has invalid bounds [%g,%g]", v.Name, v.Lo, v.Hi)
		}
	}
	for _, r := range p.rows {
		if math.IsNaN(r.RHS) || math.IsInf(r.RHS, 0) {
			return fmt.Errorf("row %s has invalid right-hand side %g", r.Name, r.RHS)
		}
		for _, t := range r.Terms {
			if !valid(t.Var) {
				return fmt.Errorf("row %s references unknown variable %d", r.Name, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("row %s has invalid coefficient on %s", r.Name, p.vars[t.Var].Name)
			}
		}
	}
	for _, c := range p.curves {
		if !valid(c.Target) || !valid(c.State) || (c.Gate != NoVar && !valid(c.Gate)) {
			return fmt.Errorf("curve bound %s references unknown variable", c.Name)
		}
		if c.Curve == nil {
			return fmt.Errorf("curve bound %s has no curve", c.Name)
		}
	}
	for j, c := range p.cost {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("objective coefficient on %s is invalid", p.vars[j].Name)
		}
	}
	return nil
}

// Summary describes the problem size for logs.
func (p *Problem) Summary() string {
	var ints, fixed int
	for _, v := range p.vars {
		if v.Integer {
			ints++
		}
		if v.Fixed() {
			fixed++
		}
	}
	senses := map[Sense]int{}
	for _, r := range p.rows {
		senses[r.Sense]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "vars=%d (integer=%d fixed=%d) rows=%d (le=%d ge=%d eq=%d) curves=%d",
		len(p.vars), ints, fixed, len(p.rows), senses[LE], senses[GE], senses[EQ], len(p.curves))
	return b.String()
}
