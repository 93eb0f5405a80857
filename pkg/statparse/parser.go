package statparse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// VersionKey is the result key holding the schema's format version.
const VersionKey = "version"

// Result is the output tree of a successful parse: the schema's format
// version under VersionKey plus the root field's value under its name.
type Result map[string]any

// Parser parses statblock text with a compiled schema. A Parser is
// immutable after New and safe for concurrent use; every call to Parse
// builds its own parser instances and output tree.
type Parser struct {
	schema *fieldspec.Schema
	root   *node
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer used to record a span per parse.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Parser) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// New compiles a schema into a Parser. The schema is validated first.
func New(schema *fieldspec.Schema, opts ...Option) (*Parser, error) {
	if err := fieldspec.Validate(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	root, err := compile(schema.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	p := &Parser{
		schema: schema,
		root:   root,
		logger: slog.Default().With("component", "statparse"),
		tracer: trace.NewNoopTracerProvider().Tracer("statparse"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Schema returns the schema the parser was built from.
func (p *Parser) Schema() *fieldspec.Schema {
	return p.schema
}

// Version returns the schema format version attached to results.
func (p *Parser) Version() string {
	return p.schema.FormatVersion
}

// Parse splits text into trimmed, non-empty lines and parses them.
func (p *Parser) Parse(ctx context.Context, text string) (Result, error) {
	return p.ParseLines(ctx, SplitLines(text))
}

// ParseLines parses pre-split input lines.
//
// The root field is matched once and then resumed line by line for as long
// as input remains, after which every incomplete field is finished. On
// failure the error joins every BadValueError, at most one
// MissingContentError and, when input was left over, ErrNoMatch; use
// errors.As and errors.Is to inspect it.
func (p *Parser) ParseLines(ctx context.Context, lines []string) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "statparse.Parse",
		trace.WithAttributes(
			attribute.Int("statparse.lines", len(lines)),
			attribute.String("statparse.schema_version", p.schema.FormatVersion),
		),
	)
	defer span.End()

	pc := newParseContext(ctx, p.logger, lines)
	root := newInstance(p.root)

	matched := pc.parseInstance(root)
	for matched && !pc.lines.empty() && ctx.Err() == nil {
		if !pc.resumeInstance(root) {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse cancelled")
		return nil, err
	}
	pc.completeStack("")

	if err := pc.err(root, matched); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	result := Result{VersionKey: p.schema.FormatVersion}
	for k, v := range pc.output {
		result[k] = v
	}
	return result, nil
}

// err assembles the errors collected during a run.
func (c *parseContext) err(root *instance, matched bool) error {
	var errs []error

	switch {
	case !matched && c.lines.empty():
		if root.required > 0 {
			c.missing = append(c.missing, MissingField{
				Name:     root.node.field.Name,
				Required: root.required,
			})
		}
	case !c.lines.empty():
		errs = append(errs, fmt.Errorf("%w: %d line(s) not consumed, starting with %q",
			ErrNoMatch, c.lines.len(), c.lines.head()))
	}

	for _, bad := range c.badValues {
		errs = append(errs, bad)
	}
	if len(c.missing) > 0 {
		errs = append(errs, &MissingContentError{Missing: c.missing})
	}

	return errors.Join(errs...)
}

// Records returns the record mappings stored under the root field name,
// whether the root repeats or not.
func Records(result Result, rootName string) []map[string]any {
	switch v := result[rootName].(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
