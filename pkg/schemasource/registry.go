package schemasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
)

// ErrNotLoaded is returned before the first successful Load.
var ErrNotLoaded = errors.New("schema not loaded")

// Snapshot is one loaded schema and the parser compiled from it.
// Snapshots are immutable; a reload swaps in a new one.
type Snapshot struct {
	Parser   *statparse.Parser
	Schema   *fieldspec.Schema
	Source   string    // Loader name: "builtin", "file", "git"
	Revision string    // Content hash or commit SHA
	LoadedAt time.Time // When the snapshot became active
}

// Version returns the schema format version.
func (s *Snapshot) Version() string {
	return s.Schema.FormatVersion
}

// ReloadRecorder receives the outcome of every load attempt.
// *metrics.Collector satisfies it.
type ReloadRecorder interface {
	RecordSchemaReload(source, version string, err error)
}

// Listener is called after a new snapshot becomes active.
type Listener func(previous, current *Snapshot)

// Registry holds the active schema snapshot. Reads take a read lock only,
// so parsing never waits on a reload in progress.
type Registry struct {
	loader     Loader
	parserOpts []statparse.Option
	recorder   ReloadRecorder
	logger     *slog.Logger

	mu        sync.RWMutex
	current   *Snapshot
	listeners []Listener

	// reloadMu serializes loads so two watchers cannot race a swap.
	reloadMu sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithParserOptions passes options to every statparse.New call.
func WithParserOptions(opts ...statparse.Option) RegistryOption {
	return func(r *Registry) {
		r.parserOpts = append(r.parserOpts, opts...)
	}
}

// WithRecorder sets where load outcomes are reported.
func WithRecorder(rec ReloadRecorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry that loads schemas with loader. Nothing is
// loaded until Load is called.
func NewRegistry(loader Loader, opts ...RegistryOption) *Registry {
	r := &Registry{
		loader: loader,
		logger: slog.Default().With("component", "schemasource"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load performs the initial load. It fails if the schema cannot be loaded
// or compiled.
func (r *Registry) Load(ctx context.Context) error {
	return r.reload(ctx, "load")
}

// Reload loads the schema again and swaps it in. On failure the previous
// snapshot stays active and the error is returned.
func (r *Registry) Reload(ctx context.Context) error {
	return r.reload(ctx, "reload")
}

func (r *Registry) reload(ctx context.Context, op string) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	start := time.Now()
	schema, revision, err := r.loader.Load(ctx)
	if err != nil {
		r.fail(op, err)
		return fmt.Errorf("failed to %s schema from %s: %w", op, r.loader.Name(), err)
	}

	parser, err := statparse.New(schema, r.parserOpts...)
	if err != nil {
		r.fail(op, err)
		return fmt.Errorf("failed to compile schema from %s: %w", r.loader.Name(), err)
	}

	next := &Snapshot{
		Parser:   parser,
		Schema:   schema,
		Source:   r.loader.Name(),
		Revision: revision,
		LoadedAt: time.Now(),
	}

	r.mu.Lock()
	previous := r.current
	r.current = next
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.RecordSchemaReload(next.Source, next.Version(), nil)
	}

	r.logger.Info("schema "+op+"ed",
		"source", next.Source,
		"version", next.Version(),
		"revision", next.Revision,
		"fields", schema.FieldCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	for _, fn := range listeners {
		fn(previous, next)
	}
	return nil
}

func (r *Registry) fail(op string, err error) {
	if r.recorder != nil {
		r.recorder.RecordSchemaReload(r.loader.Name(), "", err)
	}
	attrs := []any{"source", r.loader.Name(), "error", err}
	if cur := r.Current(); cur != nil {
		attrs = append(attrs, "active_version", cur.Version(), "active_revision", cur.Revision)
	}
	r.logger.Error("schema "+op+" failed", attrs...)
}

// Current returns the active snapshot, or nil before the first load.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Parser returns the active parser.
func (r *Registry) Parser() (*statparse.Parser, error) {
	cur := r.Current()
	if cur == nil {
		return nil, ErrNotLoaded
	}
	return cur.Parser, nil
}

// Version returns the active schema format version, or "" before the first
// load.
func (r *Registry) Version() string {
	cur := r.Current()
	if cur == nil {
		return ""
	}
	return cur.Version()
}

// OnReload registers a listener for snapshot swaps.
func (r *Registry) OnReload(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Check reports whether a schema is loaded. It is registered as a health
// check.
func (r *Registry) Check(ctx context.Context) error {
	if r.Current() == nil {
		return ErrNotLoaded
	}
	return nil
}
