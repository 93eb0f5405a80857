package metrics

import (
	"sync"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for parse metrics.
const (
	OutcomeOK       = "ok"
	OutcomeMissing  = "missing_content"
	OutcomeBadValue = "bad_value"
	OutcomeNoMatch  = "no_match"
	OutcomeError    = "error"
)

// OverflowFieldName replaces field labels past the cardinality limit.
const OverflowFieldName = "other"

// Collector owns every Prometheus metric of the statblock service. It is
// the only type other packages talk to; the per-area metric groups stay
// unexported behind it.
//
// Field-labelled counters go through a CardinalityLimiter: schema paths are
// bounded by the schema, but a schema loaded from disk can be arbitrarily
// large, so past MaxFieldLabels distinct fields the label collapses to
// "other".
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	parse   *parseMetrics
	schema  *schemaMetrics
	records *recordMetrics

	fieldLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh one, so tests never collide on the global default registry.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.ParseDurationBuckets) == 0 {
		cfg.ParseDurationBuckets = append([]float64(nil), config.DefaultParseDurationBuckets...)
	}
	maxLabels := cfg.MaxFieldLabels
	if maxLabels <= 0 {
		maxLabels = config.DefaultMaxFieldLabels
	}

	return &Collector{
		config:       cfg,
		registry:     registry,
		parse:        newParseMetrics(cfg, registry),
		schema:       newSchemaMetrics(cfg, registry),
		records:      newRecordMetrics(cfg, registry),
		fieldLimiter: NewCardinalityLimiter(maxLabels),
	}
}

// RecordParse records one completed parse.
//
// Parameters:
//   - outcome: one of the Outcome* constants
//   - duration: wall time of the parse, normalization included
//   - lines: number of non-empty input lines
func (c *Collector) RecordParse(outcome string, duration time.Duration, lines int) {
	if !c.config.Enabled {
		return
	}
	c.parse.record(outcome, duration, lines)
}

// RecordMissingField counts a required field that received no content.
// field is the schema field name, not the instance path: paths carry
// occurrence indexes and would defeat the label limit.
func (c *Collector) RecordMissingField(field string) {
	if !c.config.Enabled {
		return
	}
	c.parse.missing.WithLabelValues(c.fieldLabel(field)).Inc()
}

// RecordBadValue counts a value rejected by its field's pattern or type.
func (c *Collector) RecordBadValue(field string) {
	if !c.config.Enabled {
		return
	}
	c.parse.badValues.WithLabelValues(c.fieldLabel(field)).Inc()
}

// RecordSchemaReload records a schema (re)load attempt. On success the
// schema info gauge switches to version.
func (c *Collector) RecordSchemaReload(source, version string, err error) {
	if !c.config.Enabled {
		return
	}
	c.schema.record(source, version, err)
}

// RecordStored records a persisted parse record by status.
func (c *Collector) RecordStored(status string) {
	if !c.config.Enabled {
		return
	}
	c.records.stored.WithLabelValues(status).Inc()
}

// RecordStoreError counts a failed storage operation.
func (c *Collector) RecordStoreError(operation string) {
	if !c.config.Enabled {
		return
	}
	c.records.errors.WithLabelValues(operation).Inc()
}

// RecordPruned counts records removed by retention.
func (c *Collector) RecordPruned(deleted int64) {
	if !c.config.Enabled {
		return
	}
	c.records.pruned.Add(float64(deleted))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// fieldLabel applies the cardinality limit to a field label.
func (c *Collector) fieldLabel(field string) string {
	if c.fieldLimiter.Allow(field) {
		return field
	}
	return OverflowFieldName
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values it admits.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be used: it is already known, or the
// limit has not been reached yet (in which case it becomes known).
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
