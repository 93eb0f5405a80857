package metrics

import (
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// parseMetrics tracks parser throughput and quality.
//
// Metrics:
//   - statblock_parse_total: parses by outcome
//   - statblock_parse_duration_seconds: parse latency histogram
//   - statblock_parse_input_lines: input size histogram
//   - statblock_parse_missing_fields_total: missing required fields by field
//   - statblock_parse_bad_values_total: rejected values by field
type parseMetrics struct {
	total     *prometheus.CounterVec
	duration  prometheus.Histogram
	lines     prometheus.Histogram
	missing   *prometheus.CounterVec
	badValues *prometheus.CounterVec
}

func newParseMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *parseMetrics {
	pm := &parseMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "parse",
				Name:      "total",
				Help:      "Total number of statblock parses by outcome",
			},
			[]string{"outcome"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "parse",
				Name:      "duration_seconds",
				Help:      "Statblock parse duration in seconds",
				Buckets:   cfg.ParseDurationBuckets,
			},
		),

		lines: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "parse",
				Name:      "input_lines",
				Help:      "Number of non-empty input lines per parse",
				Buckets:   []float64{5, 10, 20, 40, 80, 160},
			},
		),

		missing: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "parse",
				Name:      "missing_fields_total",
				Help:      "Required fields that received no content, by field",
			},
			[]string{"field"},
		),

		badValues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "parse",
				Name:      "bad_values_total",
				Help:      "Values rejected by their field pattern or type, by field",
			},
			[]string{"field"},
		),
	}

	registry.MustRegister(pm.total, pm.duration, pm.lines, pm.missing, pm.badValues)

	return pm
}

func (pm *parseMetrics) record(outcome string, duration time.Duration, lines int) {
	pm.total.WithLabelValues(outcome).Inc()
	pm.duration.Observe(duration.Seconds())
	pm.lines.Observe(float64(lines))
}
