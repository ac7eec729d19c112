// Package observe carries the metrics and tracing hooks of the project
// database. Recorder and Tracer are small interfaces so callers can run
// without any backend; Prometheus and OpenTelemetry implementations are
// provided.
package observe

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives operation outcomes.
type Recorder interface {
	// Observe records one operation outcome and its duration.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// ObserveReferences records how many reference slots a cascade rewrote.
	ObserveReferences(operation string, count int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Observe(context.Context, string, bool, time.Duration) {}
func (NopRecorder) ObserveReferences(string, int)                       {}

// PrometheusRecorder exports operation counters, latencies and cascade sizes.
type PrometheusRecorder struct {
	results    *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	references *prometheus.CounterVec
}

// NewPrometheusRecorder registers the recorder's collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tacticsdb",
			Name:      "operations_total",
			Help:      "Database operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tacticsdb",
			Name:      "operation_duration_seconds",
			Help:      "Database operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		references: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tacticsdb",
			Name:      "cascade_references_total",
			Help:      "Reference slots rewritten by rename and swap cascades.",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.results, r.durations, r.references} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements Recorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.results.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveReferences implements Recorder.
func (r *PrometheusRecorder) ObserveReferences(operation string, count int) {
	if operation == "" || count <= 0 {
		return
	}
	r.references.WithLabelValues(operation).Add(float64(count))
}
