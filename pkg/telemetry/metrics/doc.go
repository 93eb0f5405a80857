// Package metrics exposes Prometheus metrics for the statblock service.
//
// A single Collector owns a private registry with three groups:
//
//   - parse: totals by outcome, duration and input size histograms, and
//     missing-field and bad-value counters labelled by schema field
//   - schema: load attempts by source and result, plus an info gauge that
//     carries the active schema version
//   - records: persisted records by status, storage errors and pruned totals
//
// Field labels pass through a CardinalityLimiter; once MaxFieldLabels
// distinct fields have been seen, new ones are counted under "other".
// Every Record* method is a no-op when metrics are disabled.
package metrics
