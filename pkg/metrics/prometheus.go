package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	calculations *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	published    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	cache        *prometheus.CounterVec
}

// New registers the recorder's collectors on reg, or the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		calculations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jyotish_calculations_total",
				Help: "Completed calculations by engine",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jyotish_calculation_duration_seconds",
				Help:    "Calculation duration including ephemeris lookups",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jyotish_events_published_total",
				Help: "Calculation events handed to a backend",
			},
			[]string{"backend", "kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jyotish_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jyotish_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}
}

func (r *Recorder) RecordCalculation(kind string, seconds float64) {
	r.calculations.WithLabelValues(kind).Inc()
	r.latency.WithLabelValues(kind).Observe(seconds)
}

func (r *Recorder) RecordEventPublished(backend, kind string) {
	r.published.WithLabelValues(backend, kind).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(cache, result).Inc()
}
