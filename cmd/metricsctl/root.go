package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"metricsdash/internal/backend"
	"metricsdash/internal/cli"
	"metricsdash/internal/config"
	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
)

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd() *cobra.Command {
	var logLevel string
	a := &app{}

	cmd := &cobra.Command{
		Use:          "metricsctl",
		Short:        "metricsctl manages the metricsdash record store.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			if logLevel == "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			a.logger = cli.SetupLogger(logLevel).WithComponent(applog.ComponentCLI)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	cmd.AddCommand(
		seedCmd(a),
		queryCmd(a),
		publishCmd(a),
	)
	return cmd
}

// app carries state shared by subcommands once flags are parsed.
type app struct {
	logger *applog.Logger
}

func (a *app) log() *applog.Logger {
	if a.logger == nil {
		a.logger = cli.SetupLogger("").WithComponent(applog.ComponentCLI)
	}
	return a.logger
}

// config loads and validates the environment configuration.
func (a *app) config() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the store DATA_BACKEND selects. Write paths refuse
// backends that do not persist.
func (a *app) openStore(ctx context.Context, writable bool) (*backend.BackendResult, *config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	open := cli.OpenStore
	if writable {
		open = cli.OpenWritableStore
	}
	res, err := open(ctx, a.log(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return res, cfg, nil
}

// loadRecords reads records from a JSON file, or returns the built-in
// sample dataset when path is empty.
func loadRecords(path string) ([]core.Record, error) {
	if path == "" {
		return core.SampleRecords(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	recs, err := core.DecodeRecords(b)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateDates(recs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
