package optim

import "context"

// Status reports the quality of a Solution.
type Status int

const (
	// Optimal means the solver proved optimality.
	Optimal Status = iota
	// Feasible means a feasible assignment was found but a limit stopped
	// the search before optimality was proven.
	Feasible
)

func (s Status) String() string {
	if s == Optimal {
		return "optimal"
	}
	return "feasible"
}

// Solution is the assignment returned by a Solver.
type Solution struct {
	Status     Status
	Values     []float64
	Objective  float64
	Nodes      int
	Iterations int
}

// Value returns the value of a variable.
func (s *Solution) Value(v VarID) float64 { return s.Values[v] }

// Many returns the values of several variables.
func (s *Solution) Many(ids []VarID) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = s.Values[id]
	}
	return out
}

// Solver solves a Problem.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}
