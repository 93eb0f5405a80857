package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/cli"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/retention"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/storage"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Query and prune stored parse results",
	Long: `Work with the parse results kept by "parse --store" and the server.

Subcommands:
  query  - List records matching filters
  get    - Print one record as JSON
  prune  - Apply the retention policy now`,
}

var queryFlags struct {
	status        string
	name          string
	source        string
	schemaVersion string
	since         string
	until         string
	limit         int
	offset        int
	sort          string
	format        string
}

var recordsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored parse results",
	Long: `List stored parse results, newest first.

--since and --until accept an RFC 3339 time or a duration relative to now
("24h" means the last day).

Examples:
  # Failed parses from the last day
  statblock records query --status missing_content --since 24h

  # Everything named like "dragon", as CSV
  statblock records query --name dragon --format csv`,
	RunE: queryRecords,
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one stored parse result",
	Args:  cobra.ExactArgs(1),
	RunE:  getRecord,
}

var pruneFlags struct {
	days       int
	maxRecords int64
}

var recordsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete records older than the retention period and, when a record cap is
set, the oldest records above the cap. Flags override the configured policy.

Examples:
  statblock records prune
  statblock records prune --days 7 --max-records 10000`,
	RunE: pruneRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsQueryCmd, recordsGetCmd, recordsPruneCmd)

	f := recordsQueryCmd.Flags()
	f.StringVar(&queryFlags.status, "status", "", "filter by status (ok, missing_content, bad_value, no_match, error)")
	f.StringVar(&queryFlags.name, "name", "", "filter by name (case-insensitive substring)")
	f.StringVar(&queryFlags.source, "source", "", "filter by source")
	f.StringVar(&queryFlags.schemaVersion, "schema-version", "", "filter by schema version")
	f.StringVar(&queryFlags.since, "since", "", "only records parsed at or after this time")
	f.StringVar(&queryFlags.until, "until", "", "only records parsed at or before this time")
	f.IntVar(&queryFlags.limit, "limit", 0, "maximum records to return (0 = configured default)")
	f.IntVar(&queryFlags.offset, "offset", 0, "records to skip")
	f.StringVar(&queryFlags.sort, "sort", records.SortDesc, "sort order: asc, desc")
	f.StringVar(&queryFlags.format, "format", "text", "output format: text, json, csv")

	recordsPruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "retention in days (0 = keep forever, -1 = configured)")
	recordsPruneCmd.Flags().Int64Var(&pruneFlags.maxRecords, "max-records", -1, "record cap (0 = unlimited, -1 = configured)")
}

// openStore loads configuration and opens the records backend.
func openStore(cmd *cobra.Command) (*config.Config, records.Storage, error) {
	cfg, _, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.New(cfg.Records)
	if err != nil {
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return cfg, store, nil
}

func queryRecords(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(queryFlags.format)
	if err != nil {
		return err
	}

	now := time.Now()
	q := &records.Query{
		Status:        queryFlags.status,
		Name:          queryFlags.name,
		Source:        queryFlags.source,
		SchemaVersion: queryFlags.schemaVersion,
		Limit:         queryFlags.limit,
		Offset:        queryFlags.offset,
		SortOrder:     queryFlags.sort,
	}
	if q.StartTime, err = parseTimeFlag("since", queryFlags.since, now); err != nil {
		return err
	}
	if q.EndTime, err = parseTimeFlag("until", queryFlags.until, now); err != nil {
		return err
	}

	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := records.ValidateQuery(q, cfg.Records.Query.MaxLimit); err != nil {
		var qe *records.QueryError
		if errors.As(err, &qe) {
			return cli.NewConfigError(qe.Field, qe.Reason)
		}
		return cli.NewConfigError("query", err.Error())
	}
	records.ApplyQueryDefaults(q, cfg.Records.Query.DefaultLimit)

	list, err := store.Query(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("records query", err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, list)
	}
	return cli.NewFormatter(format).FormatTo(out, recordTable(list))
}

// parseTimeFlag accepts RFC 3339 or a duration back from now.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return nil, cli.NewConfigError(name, fmt.Sprintf("%q is neither an RFC 3339 time nor a positive duration", value))
	}
	t := now.Add(-d)
	return &t, nil
}

func recordTable(list []*records.Record) *cli.Table {
	table := &cli.Table{
		Headers: []string{"ID", "PARSED_AT", "STATUS", "NAME", "SOURCE", "SCHEMA", "LINES", "DURATION"},
	}
	for _, r := range list {
		table.Rows = append(table.Rows, []string{
			r.ID,
			r.ParsedAt.UTC().Format(time.RFC3339),
			r.Status,
			r.Name,
			r.Source,
			r.SchemaVersion,
			strconv.Itoa(r.InputLines),
			r.Duration.Round(time.Microsecond).String(),
		})
	}
	return table
}

func getRecord(cmd *cobra.Command, args []string) error {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(commandContext(cmd), args[0])
	if errors.Is(err, records.ErrRecordNotFound) {
		return cli.NewCommandError("records get", fmt.Errorf("record %s not found", args[0]))
	}
	if err != nil {
		return cli.NewCommandError("records get", err)
	}
	return cli.NewFormatter(cli.FormatJSON).FormatTo(cmd.OutOrStdout(), rec)
}

func pruneRecords(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	policy := cfg.Records.Retention
	if pruneFlags.days >= 0 {
		policy.Days = pruneFlags.days
	}
	if pruneFlags.maxRecords >= 0 {
		policy.MaxRecords = pruneFlags.maxRecords
	}

	deleted, err := retention.NewPruner(store, policy).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("records prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d record(s)\n", deleted)
	return nil
}
