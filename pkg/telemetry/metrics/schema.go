package metrics

import (
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// schemaMetrics tracks schema loading.
//
// Metrics:
//   - statblock_schema_reloads_total: load attempts by source and result
//   - statblock_schema_info: 1 for the active schema version
type schemaMetrics struct {
	reloads *prometheus.CounterVec
	info    *prometheus.GaugeVec
}

func newSchemaMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *schemaMetrics {
	factory := promauto.With(registry)
	return &schemaMetrics{
		reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "schema",
				Name:      "reloads_total",
				Help:      "Schema load attempts by source and result",
			},
			[]string{"source", "result"},
		),
		info: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "schema",
				Name:      "info",
				Help:      "Active schema version (value is always 1)",
			},
			[]string{"version"},
		),
	}
}

func (sm *schemaMetrics) record(source, version string, err error) {
	if err != nil {
		sm.reloads.WithLabelValues(source, "error").Inc()
		return
	}
	sm.reloads.WithLabelValues(source, "success").Inc()
	sm.info.Reset()
	sm.info.WithLabelValues(version).Set(1)
}
