// Package telemetry groups the observability packages of the statblock
// service.
//
// # Components
//
//   - logging: structured slog logging with run context and credential redaction
//   - metrics: Prometheus metrics for parses, schema reloads and stored records
//   - tracing: OpenTelemetry tracing exported over OTLP gRPC
//   - health: liveness and readiness probes
//
// Each subpackage is configured from the matching section of
// config.TelemetryConfig and wired together by the serve command.
package telemetry
