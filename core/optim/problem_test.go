package optim

import (
	"math"
	"strings"
	"testing"
)

func TestProblemBuild(t *testing.T) {
	p := NewProblem()
	x := p.Continuous("x", 0, 10)
	y := p.Binary("y")
	z := p.Fixed("z", 3)
	p.AddRow("r1", LE, 5, T(x, 1), T(y, 2))
	p.Minimize(T(x, 1), T(x, 1), T(z, -1))
	p.AddConstant(4)

	if p.NumVars() != 3 || !p.Var(y).Integer || !p.Var(z).Fixed() {
		t.Fatal("unexpected variable definitions")
	}
	if got := p.Evaluate([]float64{1, 0, 3}); got != 3 {
		t.Fatalf("objective got %g want 3", got)
	}
	if err := p.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if s := p.Summary(); !strings.Contains(s, "vars=3 (integer=1 fixed=1)") || !strings.Contains(s, "le=1") {
		t.Fatalf("unexpected summary %q", s)
	}
}

func TestProblemCheckRejectsInvalid(t *testing.T) {
	p := NewProblem()
	x := p.Continuous("x", 0, 1)
	p.AddRow("bad", LE, 1, T(x+5, 1))
	if err := p.Check(); err == nil {
		t.Fatal("expected unknown variable error")
	}

	p = NewProblem()
	p.Continuous("x", 2, 1)
	if err := p.Check(); err == nil {
		t.Fatal("expected invalid bounds error")
	}

	p = NewProblem()
	x = p.Continuous("x", 0, 1)
	p.AddRow("nan", GE, math.NaN(), T(x, 1))
	if err := p.Check(); err == nil {
		t.Fatal("expected invalid rhs error")
	}

	p = NewProblem()
	x = p.Continuous("x", 0, 1)
	p.AddCurveBound(CurveBound{Name: "c", Target: x, State: x, Gate: NoVar})
	if err := p.Check(); err == nil {
		t.Fatal("expected missing curve error")
	}
}
