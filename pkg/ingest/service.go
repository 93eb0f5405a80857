package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/normalize"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/logging"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/metrics"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/tracing"
)

// Errors returned before parsing starts.
var (
	ErrNoSchema      = errors.New("no schema loaded")
	ErrInputTooLarge = errors.New("input exceeds maximum size")
)

// storeTimeout bounds a single record write.
const storeTimeout = 5 * time.Second

// SchemaProvider supplies the schema snapshot to parse with.
// *schemasource.Registry satisfies it.
type SchemaProvider interface {
	Current() *schemasource.Snapshot
}

// Request is one piece of statblock text to parse.
type Request struct {
	Text    string // Raw statblock text
	Source  string // Where the text came from, e.g. a file name or "http"
	Persist bool   // Store the outcome when a store is configured
}

// Outcome describes a finished ingest run, successful or not.
type Outcome struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	Name          string           `json:"name,omitempty"`
	Result        statparse.Result `json:"result,omitempty"`
	Duration      time.Duration    `json:"duration"`
	SchemaVersion string           `json:"schema_version"`
	SchemaRev     string           `json:"schema_rev,omitempty"`
	Stored        bool             `json:"stored"`
}

// Service runs statblock text through normalization, parsing, metrics and
// persistence. It is safe for concurrent use.
type Service struct {
	schemas       SchemaProvider
	normalizer    normalize.Normalizer
	store         records.Storage
	metrics       *metrics.Collector
	tracer        trace.Tracer
	logger        *logging.Logger
	maxInputBytes int64
	timeout       time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n normalize.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithStore enables persistence of outcomes.
func WithStore(store records.Storage) Option {
	return func(s *Service) { s.store = store }
}

// WithMetrics enables parse metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithTracer sets the tracer for ingest spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParserConfig applies input limits and the normalize switch.
func WithParserConfig(cfg config.ParserConfig) Option {
	return func(s *Service) {
		s.maxInputBytes = cfg.MaxInputBytes
		s.timeout = cfg.Timeout
		if !cfg.Normalize {
			s.normalizer = normalize.Identity
		}
	}
}

// New creates a service that parses with the schema schemas currently
// provides.
func New(schemas SchemaProvider, opts ...Option) *Service {
	s := &Service{
		schemas:    schemas,
		normalizer: normalize.Default(),
		tracer:     trace.NewNoopTracerProvider().Tracer("ingest"),
		logger:     logging.Wrap(slog.Default()).WithComponent("ingest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest parses req.Text. A parse failure still yields an Outcome (with a
// non-ok Status, and stored when persistence is on) alongside the parse
// error, so callers can report the run ID.
func (s *Service) Ingest(ctx context.Context, req Request) (*Outcome, error) {
	snapshot := s.schemas.Current()
	if snapshot == nil {
		return nil, ErrNoSchema
	}
	if s.maxInputBytes > 0 && int64(len(req.Text)) > s.maxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLarge, len(req.Text), s.maxInputBytes)
	}

	source := req.Source
	if source == "" {
		source = "unknown"
	}

	out := &Outcome{
		ID:            uuid.New().String(),
		SchemaVersion: snapshot.Version(),
		SchemaRev:     snapshot.Revision,
	}

	ctx = logging.WithRunID(ctx, out.ID)
	ctx = logging.WithSource(ctx, source)
	ctx = logging.WithSchemaVersion(ctx, out.SchemaVersion)

	ctx, span := s.tracer.Start(ctx, "ingest.Ingest")
	defer span.End()
	tracing.SetIngestAttributes(span, out.ID, source, out.SchemaVersion, len(req.Text))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text := s.normalizer.Normalize(req.Text)
	lines := statparse.SplitLines(text)

	start := time.Now()
	result, parseErr := snapshot.Parser.ParseLines(ctx, lines)
	out.Duration = time.Since(start)
	out.Status = Classify(parseErr)

	if parseErr == nil {
		out.Result = result
		out.Name = recordName(result, snapshot.Schema.Root.Name)
	}

	s.observe(parseErr, out, len(lines))

	if req.Persist && s.store != nil {
		out.Stored = s.persist(ctx, out, source, text, len(lines), parseErr)
	}

	tracing.SetOutcomeAttributes(span, out.Status, out.Name, out.Stored)
	if parseErr != nil {
		tracing.SetError(span, parseErr, out.Status)
		s.logger.InfoContext(ctx, "statblock parse failed",
			"status", out.Status,
			"duration_ms", out.Duration.Milliseconds(),
			"error", parseErr,
		)
		return out, parseErr
	}

	s.logger.InfoContext(ctx, "statblock parsed",
		"name", out.Name,
		"lines", len(lines),
		"duration_ms", out.Duration.Milliseconds(),
		"stored", out.Stored,
	)
	return out, nil
}

// observe records parse metrics, including one counter per missing field
// and per bad value.
func (s *Service) observe(err error, out *Outcome, lines int) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordParse(out.Status, out.Duration, lines)

	var missing *statparse.MissingContentError
	if errors.As(err, &missing) {
		for _, field := range missing.Fields() {
			s.metrics.RecordMissingField(field)
		}
	}
	for _, bad := range BadValues(err) {
		s.metrics.RecordBadValue(bad.Field)
	}
}

func (s *Service) persist(ctx context.Context, out *Outcome, source, text string, lines int, parseErr error) bool {
	record := &records.Record{
		ID:            out.ID,
		Source:        source,
		SchemaVersion: out.SchemaVersion,
		SchemaRev:     out.SchemaRev,
		Status:        out.Status,
		Name:          out.Name,
		InputHash:     records.HashInput(text),
		InputLines:    lines,
		ParsedAt:      time.Now().UTC(),
		Duration:      out.Duration,
	}
	if parseErr != nil {
		record.Error = parseErr.Error()
	} else {
		record.Result = out.Result
	}

	// Storage runs on its own deadline so a parse that used up the parse
	// timeout can still be recorded.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := s.store.Store(storeCtx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to store parse record", "error", err)
		if s.metrics != nil {
			s.metrics.RecordStoreError("store")
		}
		return false
	}

	if s.metrics != nil {
		s.metrics.RecordStored(out.Status)
	}
	return true
}

// Classify maps a parse error to a record status. Bad values win over
// missing content, which wins over unmatched input.
func Classify(err error) string {
	if err == nil {
		return records.StatusOK
	}
	if len(BadValues(err)) > 0 {
		return records.StatusBadValue
	}
	var missing *statparse.MissingContentError
	if errors.As(err, &missing) {
		return records.StatusMissingContent
	}
	if errors.Is(err, statparse.ErrNoMatch) {
		return records.StatusNoMatch
	}
	return records.StatusError
}

// BadValues collects every BadValueError in a joined error tree.
func BadValues(err error) []*statparse.BadValueError {
	if err == nil {
		return nil
	}
	if bad, ok := err.(*statparse.BadValueError); ok {
		return []*statparse.BadValueError{bad}
	}

	var out []*statparse.BadValueError
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			out = append(out, BadValues(inner)...)
		}
	case interface{ Unwrap() error }:
		out = BadValues(e.Unwrap())
	}
	return out
}

// recordName returns the "name" value of the first parsed record.
func recordName(result statparse.Result, rootName string) string {
	recs := statparse.Records(result, rootName)
	if len(recs) == 0 {
		return ""
	}
	name, _ := recs[0]["name"].(string)
	return strings.TrimSpace(name)
}

// Logger exposes the service logger to callers that log alongside it.
func (s *Service) Logger() *slog.Logger {
	return s.logger.Slog()
}
