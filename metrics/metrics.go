// Package metrics exposes Prometheus collectors for the conversion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wifski"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	registry = prometheus.NewRegistry()

	conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Conversion requests by outcome and failure kind.",
	}, []string{"outcome", "kind"})

	passDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pass_duration_seconds",
		Help:      "Wall time of each ffmpeg pass.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"pass", "outcome"})

	queueWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "queue_wait_seconds",
		Help:      "Time spent waiting for a worker slot.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	outputBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "output_bytes",
		Help:      "Size of produced GIFs.",
		Buckets:   prometheus.ExponentialBuckets(64<<10, 2, 10),
	})

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "conversions_in_flight",
		Help:      "Conversions currently holding a worker slot.",
	})

	sourceFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fetches_total",
		Help:      "Remote source fetches by backend and outcome.",
	}, []string{"backend", "outcome"})
)

func init() {
	registry.MustRegister(
		conversions,
		passDuration,
		queueWait,
		outputBytes,
		inFlight,
		sourceFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ConversionSucceeded counts a delivered GIF of n bytes.
func ConversionSucceeded(n int) {
	conversions.WithLabelValues(OutcomeSuccess, "").Inc()
	outputBytes.Observe(float64(n))
}

// ConversionFailed counts a failed request under its error kind.
func ConversionFailed(kind string) {
	conversions.WithLabelValues(OutcomeFailure, kind).Inc()
}

// ObservePass records the duration of one ffmpeg invocation.
func ObservePass(pass string, ok bool, d time.Duration) {
	passDuration.WithLabelValues(pass, outcome(ok)).Observe(d.Seconds())
}

// ObserveQueueWait records how long a request waited for a worker.
func ObserveQueueWait(d time.Duration) {
	queueWait.Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func TrackInFlight() func() {
	inFlight.Inc()
	return inFlight.Dec
}

// SourceFetched counts a remote media fetch.
func SourceFetched(backend string, ok bool) {
	sourceFetches.WithLabelValues(backend, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
