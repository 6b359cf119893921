package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EphemerisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jyotish",
			Subsystem: "ephemeris",
			Name:      "latency_seconds",
			Help:      "Latency of ephemeris lookups that reached the remote provider",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"body"},
	)

	EphemerisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jyotish",
			Subsystem: "ephemeris",
			Name:      "errors_total",
			Help:      "Failed ephemeris lookups by reason",
		},
		[]string{"reason"},
	)
)

// Register adds the ephemeris collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EphemerisLatency, EphemerisErrors)
	})
}
