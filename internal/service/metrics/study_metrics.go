package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StudyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventpull",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of study endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	StudyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventpull",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by study endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StudyLatency, StudyErrors)
	})
}
