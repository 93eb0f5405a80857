package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/cli"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate schema files",
	Long: `Validate field schema files.

The lint command loads each schema and reports every problem at once:
  - YAML syntax errors
  - Field declaration errors (unknown types, bad occurrence bounds,
    patterns that do not compile, missing enum values)
  - Errors building the parser from the schema

Examples:
  # Lint a single schema
  statblock lint --file monster.yaml

  # Lint every schema in a directory
  statblock lint --dir schemas/

  # JSON output for CI
  statblock lint --file monster.yaml --format json`,
	RunE: lintSchemas,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "schema file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of schema files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintSchemas(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(lintFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	if lintFlags.file == "" && lintFlags.dir == "" {
		return cli.NewConfigError("", "either --file or --dir must be specified")
	}

	var files []string

	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}

	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list schema files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return cli.NewConfigError("dir", "no schema files found")
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateSchemaFile(file))
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, results); err != nil {
			return err
		}
	} else {
		outputText(out, results)
	}

	for _, r := range results {
		if !r.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}

// ValidationResult represents the validation result for a single schema file.
type ValidationResult struct {
	File       string            `json:"file"`
	Valid      bool              `json:"valid"`
	Version    string            `json:"version,omitempty"`
	Root       string            `json:"root,omitempty"`
	FieldCount int               `json:"field_count,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single schema problem.
type ValidationError struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func validateSchemaFile(path string) ValidationResult {
	result := ValidationResult{
		File:  path,
		Valid: true,
	}

	schema, err := fieldspec.Load(path)
	if err == nil {
		// Loading validates declarations; building the parser compiles them.
		_, err = statparse.New(schema)
	}
	if err != nil {
		result.Valid = false
		result.Errors = toValidationErrors(err)
		return result
	}

	result.Version = schema.FormatVersion
	result.Root = schema.Root.Name
	result.FieldCount = schema.FieldCount()
	return result
}

func toValidationErrors(err error) []ValidationError {
	var errList *fieldspec.ErrorList
	if errors.As(err, &errList) {
		out := make([]ValidationError, 0, len(errList.Errors))
		for _, e := range errList.Errors {
			out = append(out, fromSchemaError(e))
		}
		return out
	}

	var schemaErr *fieldspec.Error
	if errors.As(err, &schemaErr) {
		return []ValidationError{fromSchemaError(schemaErr)}
	}

	return []ValidationError{{Message: err.Error()}}
}

func fromSchemaError(e *fieldspec.Error) ValidationError {
	return ValidationError{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Field:      e.Field,
		Message:    e.Message,
		Type:       string(e.Type),
		Suggestion: e.Suggestion,
	}
}

func outputText(w io.Writer, results []ValidationResult) {
	totalErrors := 0

	for _, result := range results {
		fmt.Fprintf(w, "Validating %s...\n", result.File)

		if result.Valid {
			fmt.Fprintf(w, "✓ Schema valid (version %q, root %q, %d fields)\n",
				result.Version, result.Root, result.FieldCount)
		}

		for _, err := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s", err.Message)
			if err.Field != "" {
				fmt.Fprintf(w, " at %s", err.Field)
			}
			if err.Line > 0 {
				fmt.Fprintf(w, " (line %d", err.Line)
				if err.Column > 0 {
					fmt.Fprintf(w, ", col %d", err.Column)
				}
				fmt.Fprint(w, ")")
			}
			if err.Type != "" {
				fmt.Fprintf(w, " [%s]", err.Type)
			}
			fmt.Fprintln(w)
			if err.Suggestion != "" {
				fmt.Fprintf(w, "  suggestion: %s\n", err.Suggestion)
			}
			totalErrors++
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d file(s), %d error(s)\n", len(results), totalErrors)
}
