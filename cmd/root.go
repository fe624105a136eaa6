package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	// Site time zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ess-scheduler/app"
	"github.com/kilianp07/ess-scheduler/config"
	"github.com/kilianp07/ess-scheduler/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "ess-scheduler",
	Short:        "Energy storage scheduling service",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
