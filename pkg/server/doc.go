// Package server exposes statblock parsing over HTTP.
//
// # Endpoints
//
//	POST /v1/parse          parse a statblock (JSON or text/plain body)
//	GET  /v1/schema         describe the active schema
//	GET  /v1/records        query stored parse results
//	GET  /v1/records/{id}   fetch one stored result
//
// The record routes are only mounted when a store is configured. Health
// probes and the Prometheus endpoint are mounted at the paths named in
// the telemetry configuration.
//
// # Parse responses
//
// A successful parse returns 200 with the result tree. A statblock that
// was read but did not satisfy the schema returns 422 with the outcome
// status ("missing_content", "bad_value" or "no_match"), the missing field
// list and any rejected values. Oversized input returns 413 and a missing
// schema returns 503.
//
// # Middleware
//
// Every request passes through panic recovery, request ID assignment and
// access logging, and through OpenTelemetry span creation when a tracer
// is supplied.
//
// # Access control
//
// The /v1/ routes can require an API key (server.auth) and can be rate
// limited per client (server.rate_limit). Clients are keyed by API key
// name when authenticated and by remote IP otherwise. Rejections return
// 401 or 429 with a Retry-After header. max_concurrent additionally caps
// in-flight parse requests. Probes and metrics are never gated.
//
// # Usage
//
//	srv, err := server.New(cfg, server.Dependencies{
//	    Ingest:  svc,
//	    Schemas: registry,
//	    Store:   store,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
