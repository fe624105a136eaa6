package plugins

import (
	dispatchlog "github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/factory"
	"github.com/kilianp07/ess-scheduler/core/optim"
)

var (
	// Solvers holds the optimization backends selectable with solver.type.
	Solvers = factory.NewRegistry[optim.Solver]("solver")
	// LogStores holds the cycle log backends selectable with logging.backend.
	LogStores = factory.NewRegistry[dispatchlog.LogStore]("log store")
)

// NewSolver instantiates the solver module named by cfg.Type.
func NewSolver(cfg factory.ModuleConfig) (optim.Solver, error) {
	return Solvers.Create(cfg)
}

// NewLogStore instantiates the log store registered under backend.
func NewLogStore(backend string, conf map[string]any) (dispatchlog.LogStore, error) {
	return LogStores.Create(factory.ModuleConfig{Type: backend, Conf: conf})
}
