package storage

import (
	"fmt"

	"github.com/kilianp07/ess-scheduler/core/optim"
)

// Mode is the per-hour binary of a storage model. A value of 1 allows
// discharging and forbids charging.
type Mode struct {
	vars []optim.VarID
}

// NewMode adds h binaries named <prefix>_mode[i].
func NewMode(p *optim.Problem, prefix string, h int) Mode {
	m := Mode{vars: make([]optim.VarID, h)}
	for i := range m.vars {
		m.vars[i] = p.Binary(fmt.Sprintf("%s_mode[%d]", prefix, i))
	}
	return m
}

// At returns the binary of hour i.
func (m Mode) At(i int) optim.VarID { return m.vars[i] }

// Values reads the mode flags from a solution.
func (m Mode) Values(sol *optim.Solution) []int {
	out := make([]int, len(m.vars))
	for i, v := range m.vars {
		if sol.Value(v) > 0.5 {
			out[i] = 1
		}
	}
	return out
}
