package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	studiesCompleted *prometheus.CounterVec
	studiesFailed    *prometheus.CounterVec
	batchSurvivors   prometheus.Histogram
	batchFailures    prometheus.Histogram
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		studiesCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventpull_studies_completed_total",
				Help: "Total number of event studies computed and delivered",
			},
			[]string{"backend", "model"},
		),
		studiesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventpull_studies_failed_total",
				Help: "Total number of event studies that could not be computed",
			},
			[]string{"kind"},
		),
		batchSurvivors: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "eventpull_batch_survivors",
				Help:    "Surviving events per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		batchFailures: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "eventpull_batch_failures",
				Help:    "Excluded events per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordStudyCompleted records one delivered study result.
func (r *Recorder) RecordStudyCompleted(backend, model string) {
	r.studiesCompleted.WithLabelValues(backend, model).Inc()
}

// RecordStudyFailed records a study failure by error kind.
func (r *Recorder) RecordStudyFailed(kind string) {
	r.studiesFailed.WithLabelValues(kind).Inc()
}

// RecordBatchSize records the survivor/failure split of one batch.
func (r *Recorder) RecordBatchSize(survivors, failures int) {
	r.batchSurvivors.Observe(float64(survivors))
	r.batchFailures.Observe(float64(failures))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
