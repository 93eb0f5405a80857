/*
Package cli provides command-line helpers for the statblock command: output
formatters, a batch progress reporter, signal handling and exit codes.

Output Formatting:

Parse results print as JSON or as an indented tree; record listings print as
aligned columns, JSON or CSV:

	format, err := cli.ParseOutputFormat(flag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Exit Codes:

Commands return typed errors and main maps them with ExitCode: 2 for
ConfigError, 3 for ParseFailedError, 1 for anything else.
*/
package cli
