package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation outcomes, latency and bounded
// lineage traversals as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	truncated  *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates the collectors and registers them with
// reg. A nil registerer leaves them unregistered.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cagecore",
			Name:      "operations_total",
			Help:      "Total number of cage service operations.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cagecore",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution of cage service operations.",
			Buckets: []float64{
				0.001, 0.005,
				0.01, 0.05,
				0.1, 0.5,
				1, 5,
			},
		}, []string{"operation"}),
		truncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cagecore",
			Name:      "lineage_truncated_total",
			Help:      "Lineage traversals stopped by the hop or depth bound.",
		}, []string{"operation"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.operations, r.latency, r.truncated} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// TraversalTruncated implements TraversalObserver.
func (r *PrometheusMetricsRecorder) TraversalTruncated(_ context.Context, operation string) {
	r.truncated.WithLabelValues(operation).Inc()
}
