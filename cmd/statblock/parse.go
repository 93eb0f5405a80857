package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/cli"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/ingest"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/storage"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/logging"
)

var parseFlags struct {
	schema   string
	format   string
	store    bool
	source   string
	progress bool
}

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Parse statblocks into JSON",
	Long: `Parse one or more statblock text files. With no files, or "-", the
statblock is read from stdin.

A single input prints its parse result. Several inputs print one report per
file. Inputs that fail to parse are reported on stderr and the command exits
with status 3.

Examples:
  # Parse a file with the built-in schema
  statblock parse goblin.txt

  # Use a schema file and print a readable tree
  statblock parse --schema monster.yaml --format text goblin.txt

  # Parse a folder of statblocks and keep the results
  statblock parse --store --progress monsters/*.txt`,
	RunE: parseStatblocks,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseFlags.schema, "schema", "s", "", "schema file (overrides the configured schema source)")
	parseCmd.Flags().StringVarP(&parseFlags.format, "format", "f", "json", "output format: json, text")
	parseCmd.Flags().BoolVar(&parseFlags.store, "store", false, "store results in the configured records backend")
	parseCmd.Flags().StringVar(&parseFlags.source, "source", "", "source label for stored records (defaults to the file name)")
	parseCmd.Flags().BoolVar(&parseFlags.progress, "progress", false, "show a progress bar on stderr")
}

// ParseReport is the per-file output when several inputs are parsed.
type ParseReport struct {
	File   string           `json:"file"`
	ID     string           `json:"id,omitempty"`
	Status string           `json:"status"`
	Name   string           `json:"name,omitempty"`
	Result statparse.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func parseStatblocks(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(parseFlags.format, cli.FormatJSON, cli.FormatText)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	registry, err := openSchema(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []ingest.Option{
		ingest.WithParserConfig(cfg.Parser),
		ingest.WithLogger(logger.WithComponent("ingest")),
	}
	if parseFlags.store {
		store, err := storage.New(cfg.Records)
		if err != nil {
			return cli.NewCommandError("parse", err)
		}
		defer store.Close()
		opts = append(opts, ingest.WithStore(store))
	}
	svc := ingest.New(registry, opts...)

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	progress := cli.ProgressReporter(cli.NopProgress{})
	if parseFlags.progress && len(inputs) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
	}
	progress.Start(int64(len(inputs)))

	out := cmd.OutOrStdout()
	formatter := cli.NewFormatter(format)
	reports := make([]ParseReport, 0, len(inputs))
	failed := 0

	for i, input := range inputs {
		report, err := parseInput(ctx, svc, cmd.InOrStdin(), input)
		if err != nil {
			return cli.NewCommandError("parse", err)
		}
		if report.Error != "" {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", report.File, report.Status, report.Error)
		}
		reports = append(reports, report)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

	if len(reports) == 1 {
		if reports[0].Result != nil {
			if err := formatter.FormatTo(out, map[string]any(reports[0].Result)); err != nil {
				return err
			}
		}
	} else if err := writeReports(out, formatter, format, reports); err != nil {
		return err
	}

	if failed > 0 {
		return &cli.ParseFailedError{Failed: failed, Total: len(inputs)}
	}
	return nil
}

// parseInput reads and parses one input. Only read failures and a missing
// schema are returned as errors; parse failures are part of the report.
func parseInput(ctx context.Context, svc *ingest.Service, stdin io.Reader, input string) (ParseReport, error) {
	var (
		data   []byte
		err    error
		source = parseFlags.source
		file   = input
	)
	if input == "-" {
		file = "stdin"
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return ParseReport{}, fmt.Errorf("failed to read %s: %w", file, err)
	}
	if source == "" {
		source = filepath.Base(file)
	}

	outcome, err := svc.Ingest(ctx, ingest.Request{
		Text:    string(data),
		Source:  source,
		Persist: parseFlags.store,
	})
	if errors.Is(err, ingest.ErrInputTooLarge) {
		return ParseReport{File: file, Status: records.StatusError, Error: err.Error()}, nil
	}
	if outcome == nil {
		return ParseReport{}, err
	}

	report := ParseReport{
		File:   file,
		ID:     outcome.ID,
		Status: outcome.Status,
		Name:   outcome.Name,
		Result: outcome.Result,
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report, nil
}

func writeReports(w io.Writer, formatter cli.Formatter, format cli.OutputFormat, reports []ParseReport) error {
	if format == cli.FormatJSON {
		return formatter.FormatTo(w, reports)
	}
	for _, r := range reports {
		fmt.Fprintf(w, "==> %s [%s] <==\n", r.File, r.Status)
		if r.Result != nil {
			if err := formatter.FormatTo(w, map[string]any(r.Result)); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// openSchema loads the --schema file when given, otherwise the configured
// schema source.
func openSchema(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*schemasource.Registry, error) {
	opts := []schemasource.RegistryOption{
		schemasource.WithLogger(logger.WithComponent("schemasource").Slog()),
		schemasource.WithParserOptions(statparse.WithLogger(logger.WithComponent("statparse").Slog())),
	}

	if parseFlags.schema != "" {
		registry := schemasource.NewRegistry(&schemasource.FileLoader{Path: parseFlags.schema}, opts...)
		if err := registry.Load(ctx); err != nil {
			return nil, cli.NewConfigError("schema", err.Error())
		}
		return registry, nil
	}

	registry, err := schemasource.Open(ctx, cfg.Schema, opts...)
	if err != nil {
		return nil, cli.NewConfigError("schema", err.Error())
	}
	return registry, nil
}
