// Package metrics exposes Prometheus collectors for the contest pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	contestsFoundTotal         *prometheus.CounterVec
	contestsSkippedTotal       *prometheus.CounterVec
	sourceErrorsTotal          *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	refreshDurationSeconds     *prometheus.HistogramVec
	corpusSize                 prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		contestsFoundTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contests_found_total",
				Help: "Contests extracted, labeled by source.",
			},
			[]string{"source"},
		)

		contestsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contests_skipped_total",
				Help: "Candidate blocks rejected during extraction, labeled by source.",
			},
			[]string{"source"},
		)

		sourceErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_errors_total",
				Help: "Sources that failed during a run, labeled by source.",
			},
			[]string{"source"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_attempts_total",
				Help: "Fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		refreshDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refresh_duration_seconds",
				Help:    "Histogram of refresh run durations, labeled by result.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"result"},
		)

		corpusSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_size",
				Help: "Number of contests in the last merged corpus.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder adapts the package collectors to the pipeline's recorder interfaces.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveFetch counts one fetch attempt.
func (Recorder) ObserveFetch(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSource records the outcome of one source within a run.
func (Recorder) ObserveSource(source string, found, skipped int, failed bool) {
	contestsFoundTotal.WithLabelValues(source).Add(float64(found))
	contestsSkippedTotal.WithLabelValues(source).Add(float64(skipped))
	if failed {
		sourceErrorsTotal.WithLabelValues(source).Inc()
	}
}

// ObserveRefresh records a finished refresh run and the resulting corpus size.
func (Recorder) ObserveRefresh(duration time.Duration, total int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		corpusSize.Set(float64(total))
	}
	refreshDurationSeconds.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
