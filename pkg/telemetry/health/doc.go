// Package health provides liveness and readiness probes for the statblock
// service.
//
// Liveness (/health) only proves the process answers HTTP. Readiness
// (/ready) runs every registered check concurrently, each bounded by the
// checker's timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("schema", true, registry.Check)
//	checker.RegisterCheck("records", false, store.Ping)
//	checker.Register(mux, "/health", "/ready")
//
// A failed critical check turns the service unhealthy (503). A failed
// non-critical check degrades it but keeps serving 200, since parsing still
// works without storage.
package health
