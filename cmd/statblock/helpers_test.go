package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// testCommand is a bare command whose streams are captured.
type testCommand struct {
	*cobra.Command
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestCommand(stdin string) *testCommand {
	tc := &testCommand{
		Command: &cobra.Command{Use: "test"},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	tc.SetOut(tc.stdout)
	tc.SetErr(tc.stderr)
	tc.SetIn(strings.NewReader(stdin))
	tc.SetContext(context.Background())
	return tc
}

// isolate points configuration at a temporary SQLite database and resets
// global flags.
func isolate(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "records.db")
	t.Setenv("STATBLOCK_RECORDS_BACKEND", "sqlite")
	t.Setenv("STATBLOCK_RECORDS_SQLITE_PATH", dbPath)
	t.Setenv("STATBLOCK_RECORDS_SQLITE_DRIVER", "sqlite")
	t.Setenv("STATBLOCK_TELEMETRY_LOGGING_LEVEL", "error")

	cfgFile = ""
	verbose = false
	logLevel = ""
	return dbPath
}
