package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/cli"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/ingest"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/retention"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/storage"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/server"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/health"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/logging"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/metrics"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the statblock HTTP API",
	Long: `Start the HTTP API server.

The server loads the configured schema (reloading it on change when watching
is enabled), stores parse results in the records backend, prunes them on the
retention schedule and exposes health and Prometheus endpoints.

Examples:
  # Start with defaults (builtin schema, SQLite records)
  statblock serve

  # Start with a config file and a different address
  statblock serve --config config.yaml --listen 0.0.0.0:8080

  # Check configuration and schema without starting
  statblock serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and schema without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "statblock %s\n", Version)
	fmt.Fprintf(out, "✓ Schema %s loaded from %s\n", app.registry.Version(), cfg.Schema.Source)
	if app.store != nil {
		fmt.Fprintf(out, "✓ Records stored in %s backend\n", cfg.Records.Backend)
	}

	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	stopWatching, err := schemasource.StartWatching(ctx, cfg.Schema, app.registry)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer stopWatching()

	if app.pruner != nil && cfg.Records.Retention.PruneSchedule != "" {
		if err := app.pruner.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer app.pruner.Stop()
			if next := app.pruner.NextPruning(); next != nil {
				logger.Debug("retention scheduler started", "next_pruning", next)
			}
		}
	}

	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if err := app.server.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// app holds the components the serve command wires together.
type app struct {
	registry *schemasource.Registry
	store    records.Storage
	pruner   *retention.Pruner
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	health   *health.Checker
	server   *server.Server
	logger   *logging.Logger
}

func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{logger: logger}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	a.tracer = tracer

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.registry, err = schemasource.Open(ctx, cfg.Schema,
		schemasource.WithLogger(logger.WithComponent("schemasource").Slog()),
		schemasource.WithRecorder(a.metrics),
		schemasource.WithParserOptions(
			statparse.WithLogger(logger.WithComponent("statparse").Slog()),
			statparse.WithTracer(tracer.Tracer()),
		),
	)
	if err != nil {
		a.Close()
		return nil, cli.NewConfigError("schema", err.Error())
	}

	opts := []ingest.Option{
		ingest.WithParserConfig(cfg.Parser),
		ingest.WithMetrics(a.metrics),
		ingest.WithTracer(tracer.Tracer()),
		ingest.WithLogger(logger.WithComponent("ingest")),
	}
	if cfg.Records.Enabled {
		a.store, err = storage.New(cfg.Records)
		if err != nil {
			a.Close()
			return nil, cli.NewCommandError("serve", err)
		}
		a.pruner = retention.NewPruner(a.store, cfg.Records.Retention).WithRecorder(a.metrics)
		opts = append(opts, ingest.WithStore(a.store))
	}

	a.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	a.health.RegisterCheck("schema", true, a.registry.Check)
	if a.store != nil {
		// Parsing still works without storage, so the store is not critical.
		a.health.RegisterCheck("records", false, a.store.Ping)
	}

	deps := server.Dependencies{
		Ingest:  ingest.New(a.registry, opts...),
		Schemas: a.registry,
		Store:   a.store,
		Health:  a.health,
		Metrics: a.metrics,
	}
	if tracer.Enabled() {
		deps.Tracer = tracer.Tracer()
	}
	a.server, err = server.New(cfg, deps)
	if err != nil {
		a.Close()
		return nil, cli.NewCommandError("serve", err)
	}

	return a, nil
}

// Close releases the store and flushes traces.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close records store", "error", err)
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to flush traces", "error", err)
		}
	}
}
