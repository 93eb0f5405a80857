package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/cli"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "statblock",
	Short: "Schema-driven statblock parser",
	Long: `Statblock turns monster statblocks copied from rulebooks and web pages
into structured JSON. The layout of a statblock is described by a field
schema (YAML), so new formats need a schema change rather than new code.

Configuration is read from --config (optional) and STATBLOCK_* environment
variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code that tells parse
// failures apart from configuration and runtime errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig reads the configuration, applies flag overrides, installs the
// process logger and returns both.
func loadConfig(logOutput io.Writer) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("config", err.Error())
	}

	switch {
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	case logLevel != "":
		cfg.Telemetry.Logging.Level = logLevel
	}

	logCfg := logging.FromConfig(cfg.Telemetry.Logging)
	logCfg.Writer = logOutput
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	config.SetConfig(cfg)
	return cfg, logger, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
