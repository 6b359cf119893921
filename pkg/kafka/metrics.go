package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producerMessages *prometheus.CounterVec
	producerBytes    *prometheus.CounterVec
	producerLatency  *prometheus.HistogramVec

	consumerQueueDepth *prometheus.GaugeVec
	consumerHandled    *prometheus.CounterVec
	consumerLatency    *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		f := promauto.With(prometheus.DefaultRegisterer)
		producerMessages = f.NewCounterVec(prometheus.CounterOpts{
			Name: "jyotish_kafka_producer_messages_total",
			Help: "Messages written to Kafka",
		}, []string{"topic", "compression", "result"})
		producerBytes = f.NewCounterVec(prometheus.CounterOpts{
			Name: "jyotish_kafka_producer_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic"})
		producerLatency = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jyotish_kafka_producer_publish_seconds",
			Help:    "Write latency per batch",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})

		consumerQueueDepth = f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jyotish_kafka_consumer_queue_depth",
			Help: "Messages fetched and waiting for a worker",
		}, []string{"topic"})
		consumerHandled = f.NewCounterVec(prometheus.CounterOpts{
			Name: "jyotish_kafka_consumer_messages_total",
			Help: "Messages handled by result (ok, error, dlq)",
		}, []string{"topic", "result"})
		consumerLatency = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jyotish_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func observeProduce(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMessages.WithLabelValues(topic, comp, result).Add(float64(count))
	producerBytes.WithLabelValues(topic).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
