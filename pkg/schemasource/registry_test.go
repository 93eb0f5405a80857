package schemasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func schemaYAML(version string) string {
	return fmt.Sprintf(`
formatVersion: %q
name: creature
type: orderedContent
contentModel:
  - name: name
    type: string
    bare: true
    pattern: ".+"
  - name: hp
    type: number
    parseToken: hit points
    pattern: '(\d+)'
    matchGroup: 1
`, version)
}

func writeSchema(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}
}

type reloadEvent struct {
	source, version string
	failed          bool
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []reloadEvent
}

func (f *fakeRecorder) RecordSchemaReload(source, version string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, reloadEvent{source, version, err != nil})
}

func TestRegistry_Builtin(t *testing.T) {
	reg := NewRegistry(BuiltinLoader{})

	if _, err := reg.Parser(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Parser() before load error = %v, want ErrNotLoaded", err)
	}
	if err := reg.Check(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Check() before load = %v, want ErrNotLoaded", err)
	}

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap := reg.Current()
	if snap == nil || snap.Parser == nil {
		t.Fatal("Current() returned no parser")
	}
	if snap.Source != SourceBuiltin || snap.Revision != SourceBuiltin {
		t.Errorf("snapshot source/revision = %s/%s", snap.Source, snap.Revision)
	}
	if reg.Version() == "" {
		t.Error("Version() is empty after load")
	}
	if err := reg.Check(context.Background()); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestRegistry_FileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, schemaYAML("1.0"))

	rec := &fakeRecorder{}
	reg := NewRegistry(&FileLoader{Path: path}, WithRecorder(rec))

	var swaps []string
	reg.OnReload(func(previous, current *Snapshot) {
		prev := "<nil>"
		if previous != nil {
			prev = previous.Version()
		}
		swaps = append(swaps, prev+"->"+current.Version())
	})

	ctx := context.Background()
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	firstRev := reg.Current().Revision

	writeSchema(t, path, schemaYAML("1.1"))
	if err := reg.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if reg.Version() != "1.1" {
		t.Errorf("Version() = %s, want 1.1", reg.Version())
	}
	if reg.Current().Revision == firstRev {
		t.Error("revision did not change with content")
	}

	// A broken schema must not replace the active one.
	writeSchema(t, path, "name: creature\ntype: nonsense\n")
	if err := reg.Reload(ctx); err == nil {
		t.Fatal("Reload() with invalid schema should fail")
	}
	if reg.Version() != "1.1" {
		t.Errorf("Version() after failed reload = %s, want 1.1", reg.Version())
	}

	want := []string{"<nil>->1.0", "1.0->1.1"}
	if fmt.Sprint(swaps) != fmt.Sprint(want) {
		t.Errorf("listener saw %v, want %v", swaps, want)
	}

	if len(rec.events) != 3 {
		t.Fatalf("recorder saw %d events, want 3", len(rec.events))
	}
	if rec.events[0].failed || rec.events[1].failed || !rec.events[2].failed {
		t.Errorf("recorder events = %+v", rec.events)
	}
	if rec.events[0].source != SourceFile {
		t.Errorf("recorded source = %s, want file", rec.events[0].source)
	}
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	reg := NewRegistry(&FileLoader{Path: filepath.Join(t.TempDir(), "absent.yaml")})
	if err := reg.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
	if reg.Current() != nil {
		t.Error("Current() should stay nil after a failed load")
	}
}

func TestRegistry_ParsesWithActiveSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, schemaYAML("3.0"))

	reg := NewRegistry(&FileLoader{Path: path})
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	parser, err := reg.Parser()
	if err != nil {
		t.Fatalf("Parser() error = %v", err)
	}
	result, err := parser.Parse(context.Background(), "Ogre\nHit Points 59")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result["version"] != "3.0" {
		t.Errorf("result version = %v, want 3.0", result["version"])
	}
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		source   string
		filePath string
		repo     string
		wantName string
		wantErr  bool
	}{
		{source: "", wantName: SourceBuiltin},
		{source: SourceBuiltin, wantName: SourceBuiltin},
		{source: SourceFile, filePath: "x.yaml", wantName: SourceFile},
		{source: SourceFile, wantErr: true},
		{source: SourceGit, repo: "https://example.com/schemas.git", wantName: SourceGit},
		{source: SourceGit, wantErr: true},
		{source: "s3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.source+tt.filePath+tt.repo, func(t *testing.T) {
			cfg := defaultSchemaConfig()
			cfg.Source = tt.source
			cfg.FilePath = tt.filePath
			cfg.Git.Repository = tt.repo

			loader, err := NewLoader(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLoader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && loader.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", loader.Name(), tt.wantName)
			}
		})
	}
}
