package plugins

import (
	"github.com/kilianp07/ess-scheduler/config"
	dispatchlog "github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/factory"
	"github.com/kilianp07/ess-scheduler/core/optim"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	"github.com/kilianp07/ess-scheduler/infra/solver/gonumlp"
)

func init() {
	Solvers.MustRegister("gonum", func(conf map[string]any) (optim.Solver, error) {
		return gonumlp.NewFromModule(conf, logger.New("solver"))
	})

	LogStores.MustRegister(config.BackendJSONL, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewJSONLStore(lc.Path)
	})
	LogStores.MustRegister(config.BackendRotating, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewRotatingJSONLStore(lc.Path, lc.MaxSizeMB, lc.MaxBackups, lc.MaxAgeDays)
	})
	LogStores.MustRegister(config.BackendSQLite, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewSQLiteStore(lc.Path)
	})
}

func decodeLogging(conf map[string]any) (config.LoggingConfig, error) {
	var lc config.LoggingConfig
	err := factory.Decode(conf, &lc)
	return lc, err
}
