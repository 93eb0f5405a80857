// Package tracing sets up OpenTelemetry tracing for the statblock service.
//
// When telemetry.tracing.enabled is false, New returns a noop tracer and
// instrumented code pays next to nothing. Otherwise spans are batched to an
// OTLP gRPC collector, sampled per telemetry.tracing.sampler (always, never
// or ratio, each parent-based), and tagged with the service name and
// version.
//
// Spans produced by the service:
//
//   - "GET /v1/..." server spans from HTTPMiddleware
//   - "ingest.Ingest" around normalization, parsing and persistence
//   - "statparse.Parse" around the engine itself
package tracing
