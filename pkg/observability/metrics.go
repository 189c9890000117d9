package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/validation"
)

// Metrics records engine activity as Prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	nodes      *prometheus.HistogramVec
	checks     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_operations_total",
				Help: "Total number of engine operations",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowgraph_operation_duration_seconds",
				Help:    "Duration of engine operations",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operation"},
		),
		nodes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowgraph_operation_graph_nodes",
				Help:    "Number of nodes in the graph an operation ran on",
				Buckets: prometheus.ExponentialBuckets(8, 2, 10),
			},
			[]string{"operation"},
		),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_validation_checks_total",
				Help: "Publish check results by title and status",
			},
			[]string{"title", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.nodes, m.checks)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnOperationEnd: func(_ context.Context, e *domain.OperationEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.operations.WithLabelValues(e.Operation, outcome).Inc()
			m.duration.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())
			if e.Nodes > 0 {
				m.nodes.WithLabelValues(e.Operation).Observe(float64(e.Nodes))
			}
		},
	}
}

// ObserveReport counts the results of a validation report.
func (m *Metrics) ObserveReport(report validation.Report) {
	for _, c := range report.Checks {
		m.checks.WithLabelValues(c.Title, string(c.Status)).Inc()
	}
}
