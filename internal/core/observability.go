package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"uksledger/pkg/domain"
)

// MetricsRecorder receives the outcome of every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// StockObserver is implemented by recorders that also track medicine stock levels.
type StockObserver interface {
	ObserveStock(medicines []domain.Medicine)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusRecorder exports operation counters, latencies and stock gauges.
type PrometheusRecorder struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	stock    *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the ledger collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uks_ledger_operations_total",
			Help: "Ledger operations by outcome.",
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uks_ledger_operation_duration_seconds",
			Help:    "Ledger operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		stock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uks_ledger_medicine_stock",
			Help: "Current stock per medicine.",
		}, []string{"medicine"}),
	}
}

// Observe records a service operation outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.ops.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveStock replaces the stock gauges with the current catalog.
func (r *PrometheusRecorder) ObserveStock(medicines []domain.Medicine) {
	r.stock.Reset()
	for _, m := range medicines {
		r.stock.WithLabelValues(m.Name).Set(float64(m.Stock))
	}
}

// OperationCounter returns the counter for an operation outcome ("success" or "error").
func (r *PrometheusRecorder) OperationCounter(operation, status string) prometheus.Counter {
	return r.ops.WithLabelValues(operation, status)
}
