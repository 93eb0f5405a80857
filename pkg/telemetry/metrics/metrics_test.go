package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:              true,
		Namespace:            "test",
		ParseDurationBuckets: []float64{0.001, 0.01, 0.1},
		MaxFieldLabels:       3,
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}

	// A nil registry gets a private one.
	if NewCollector(testConfig(), nil).Registry() == nil {
		t.Error("Expected a registry when nil is passed")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
	}
	if len(cfg.ParseDurationBuckets) == 0 {
		t.Error("Expected default duration buckets")
	}
}

func TestCollector_RecordParse(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordParse(OutcomeOK, 2*time.Millisecond, 20)
	collector.RecordParse(OutcomeOK, 3*time.Millisecond, 18)
	collector.RecordParse(OutcomeMissing, time.Millisecond, 4)

	if got := testutil.ToFloat64(collector.parse.total.WithLabelValues(OutcomeOK)); got != 2 {
		t.Errorf("parse_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.parse.total.WithLabelValues(OutcomeMissing)); got != 1 {
		t.Errorf("parse_total{missing_content} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(collector.parse.duration); got != 1 {
		t.Errorf("duration histogram series = %d, want 1", got)
	}
}

func TestCollector_FieldCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	for _, field := range []string{"hp", "ac", "speed", "languages", "challenge"} {
		collector.RecordMissingField(field)
	}
	collector.RecordBadValue("hp")

	if got := testutil.ToFloat64(collector.parse.missing.WithLabelValues("hp")); got != 1 {
		t.Errorf("missing{hp} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.parse.missing.WithLabelValues(OverflowFieldName)); got != 2 {
		t.Errorf("missing{other} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.parse.badValues.WithLabelValues("hp")); got != 1 {
		t.Errorf("bad_values{hp} = %v, want 1", got)
	}
	if got := collector.fieldLimiter.Count(); got != 3 {
		t.Errorf("limiter count = %d, want 3", got)
	}
}

func TestCollector_RecordSchemaReload(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordSchemaReload("file", "1.0", nil)
	collector.RecordSchemaReload("file", "", errors.New("bad yaml"))
	collector.RecordSchemaReload("file", "1.1", nil)

	if got := testutil.ToFloat64(collector.schema.reloads.WithLabelValues("file", "success")); got != 2 {
		t.Errorf("reloads{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.schema.reloads.WithLabelValues("file", "error")); got != 1 {
		t.Errorf("reloads{error} = %v, want 1", got)
	}

	// Only the latest version stays in the info gauge.
	if got := testutil.CollectAndCount(collector.schema.info); got != 1 {
		t.Errorf("schema_info series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(collector.schema.info.WithLabelValues("1.1")); got != 1 {
		t.Errorf("schema_info{1.1} = %v, want 1", got)
	}
}

func TestCollector_Records(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordStored("ok")
	collector.RecordStored("failed")
	collector.RecordStoreError("store")
	collector.RecordPruned(5)

	if got := testutil.ToFloat64(collector.records.stored.WithLabelValues("ok")); got != 1 {
		t.Errorf("stored{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.records.errors.WithLabelValues("store")); got != 1 {
		t.Errorf("errors{store} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.records.pruned); got != 5 {
		t.Errorf("pruned = %v, want 5", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordParse(OutcomeOK, time.Millisecond, 1)
	collector.RecordMissingField("hp")
	collector.RecordStored("ok")

	if got := testutil.ToFloat64(collector.parse.total.WithLabelValues(OutcomeOK)); got != 0 {
		t.Errorf("parse_total = %v, want 0 when disabled", got)
	}
	if got := collector.fieldLimiter.Count(); got != 0 {
		t.Errorf("limiter count = %d, want 0 when disabled", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordParse(OutcomeOK, time.Millisecond, 10)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_parse_total{outcome="ok"} 1`) {
		t.Errorf("metrics output missing parse total:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two label sets to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected third label set to be rejected")
	}
	if !cl.Allow("a") {
		t.Error("expected known label set to stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
