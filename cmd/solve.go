package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ess-scheduler/app"
	"github.com/kilianp07/ess-scheduler/config"
	"github.com/kilianp07/ess-scheduler/core/actuation"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
	"github.com/kilianp07/ess-scheduler/infra/logger"
	"github.com/kilianp07/ess-scheduler/pkg/export"
)

var (
	solveOut      string
	solveAt       string
	solveForecast string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan one cycle from the configured forecasts without actuating",
	RunE:  solve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveOut, "out", "o", "", "write the plan to a .json or .csv file instead of stdout")
	solveCmd.Flags().StringVar(&solveAt, "at", "", "cycle time (RFC3339), defaults to now")
	solveCmd.Flags().StringVar(&solveForecast, "forecast", "", "forecast profile file overriding forecast_config")
	rootCmd.AddCommand(solveCmd)
}

// dryRun rejects every command; solve only previews plans.
type dryRun struct{}

func (dryRun) Execute(_ context.Context, cmd model.ActuationCommand) actuation.Outcome {
	return actuation.Outcome{Command: cmd, Err: errors.New("dry run")}
}

func solve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	at := time.Now()
	if solveAt != "" {
		if at, err = time.Parse(time.RFC3339, solveAt); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}
	if solveForecast != "" {
		cfg.Forecast.Source = config.ForecastStatic
		cfg.Forecast.ProfilePath = solveForecast
	}
	plan, err := planOnce(ctx, cfg, at)
	if err != nil {
		return err
	}

	if solveOut == "" {
		return export.WriteJSON(cmd.OutOrStdout(), plan)
	}
	format, err := export.FormatFromPath(solveOut)
	if err != nil {
		return err
	}
	f, err := os.Create(solveOut)
	if err != nil {
		return err
	}
	if err := export.Write(f, plan, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func planOnce(ctx context.Context, cfg *config.Config, at time.Time) (*scheduler.Plan, error) {
	log := logger.New("solve")
	state, err := app.NewState(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	at = at.In(loc)
	if cfg.RTE.Enabled {
		feed, err := app.NewPriceFeed(cfg.RTE, loc)
		if err != nil {
			return nil, err
		}
		if err := app.UpdatePrices(ctx, feed, state, at, log); err != nil {
			return nil, fmt.Errorf("day-ahead prices: %w", err)
		}
	}
	opt, err := app.NewOptimizer(cfg)
	if err != nil {
		return nil, err
	}
	sc, err := cfg.SchedulerConfig()
	if err != nil {
		return nil, err
	}
	s, err := scheduler.NewRollingScheduler(sc, state, opt, dryRun{}, nil, nil, nil, log)
	if err != nil {
		return nil, err
	}
	defer s.Stop()
	return s.Preview(ctx, at)
}
