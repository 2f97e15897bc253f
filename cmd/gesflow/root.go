package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
)

// app carries what every subcommand needs once flags and environment have
// been read.
type app struct {
	configFile string
	debug      bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gesflow",
		Short:         "GesFlow Manager capture protection and audit logging tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML config file (overrides GESFLOW_CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Force development logging")

	root.AddCommand(
		newSinkCmd(a),
		newTokenCmd(a),
		newSimulateCmd(a),
	)
	return root
}

func (a *app) load() error {
	if a.configFile != "" {
		if err := os.Setenv("GESFLOW_CONFIG_FILE", a.configFile); err != nil {
			return fmt.Errorf("set config file: %w", err)
		}
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.debug {
		cfg.Environment = config.EnvDevelopment
	}
	a.cfg = cfg
	a.logger = logger.New(cfg)
	return nil
}
