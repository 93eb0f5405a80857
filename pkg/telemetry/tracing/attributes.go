package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for statblock spans.
const (
	AttrRunID         = attribute.Key("statblock.run_id")
	AttrSource        = attribute.Key("statblock.source")
	AttrSchemaVersion = attribute.Key("statblock.schema_version")
	AttrOutcome       = attribute.Key("statblock.outcome")
	AttrName          = attribute.Key("statblock.name")
	AttrInputBytes    = attribute.Key("statblock.input_bytes")
	AttrPersisted     = attribute.Key("statblock.persisted")
)

// SetIngestAttributes tags an ingest span with the run's identity.
func SetIngestAttributes(span trace.Span, runID, source, schemaVersion string, inputBytes int) {
	span.SetAttributes(
		AttrRunID.String(runID),
		AttrSource.String(source),
		AttrSchemaVersion.String(schemaVersion),
		AttrInputBytes.Int(inputBytes),
	)
}

// SetOutcomeAttributes tags a span with the parse outcome and, when one was
// found, the creature name.
func SetOutcomeAttributes(span trace.Span, outcome, name string, persisted bool) {
	attrs := []attribute.KeyValue{
		AttrOutcome.String(outcome),
		AttrPersisted.Bool(persisted),
	}
	if name != "" {
		attrs = append(attrs, AttrName.String(name))
	}
	span.SetAttributes(attrs...)
}

// HTTPAttributes returns the request attributes recorded on server spans.
func HTTPAttributes(r *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPMethod(r.Method),
		semconv.HTTPRoute(r.URL.Path),
		semconv.UserAgentOriginal(r.UserAgent()),
	}
}
