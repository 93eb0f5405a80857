package metrics

import (
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// recordMetrics tracks the parse record store.
type recordMetrics struct {
	stored *prometheus.CounterVec
	errors *prometheus.CounterVec
	pruned prometheus.Counter
}

func newRecordMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *recordMetrics {
	factory := promauto.With(registry)
	return &recordMetrics{
		stored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "records",
				Name:      "stored_total",
				Help:      "Parse records persisted, by status",
			},
			[]string{"status"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "records",
				Name:      "errors_total",
				Help:      "Failed storage operations, by operation",
			},
			[]string{"operation"},
		),
		pruned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "records",
				Name:      "pruned_total",
				Help:      "Records deleted by retention",
			},
		),
	}
}
