package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "transcriber"

// PrometheusMetrics implements ProviderMetrics with Prometheus collectors
type PrometheusMetrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	pollAttempts *prometheus.HistogramVec
	inFlight     prometheus.Gauge
}

// NewPrometheusMetrics registers the transcription collectors on reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transcriptions_total",
			Help:      "Transcription requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "transcription_duration_seconds",
			Help:      "Time spent in a provider for successful transcriptions.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"provider"}),
		pollAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_poll_attempts",
			Help:      "Status polls needed per remote transcription job.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"provider"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "transcriptions_in_flight",
			Help:      "Transcriptions currently holding a gateway slot.",
		}),
	}
}

// RecordSuccess records a successful transcription
func (m *PrometheusMetrics) RecordSuccess(provider string, latency time.Duration) {
	m.requests.WithLabelValues(provider, "success").Inc()
	m.latency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordFailure records a failed transcription under its error kind
func (m *PrometheusMetrics) RecordFailure(provider string, kind ErrorKind) {
	if kind == "" {
		kind = "internal"
	}
	m.requests.WithLabelValues(provider, string(kind)).Inc()
}

// RecordPollAttempts records how many status polls a job needed
func (m *PrometheusMetrics) RecordPollAttempts(provider string, attempts int) {
	m.pollAttempts.WithLabelValues(provider).Observe(float64(attempts))
}

// TrackInFlight increments the in-flight gauge until the returned func runs
func (m *PrometheusMetrics) TrackInFlight() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// NopMetrics discards everything; used when metrics are not wired
type NopMetrics struct{}

func (NopMetrics) RecordSuccess(string, time.Duration) {}
func (NopMetrics) RecordFailure(string, ErrorKind)     {}
func (NopMetrics) RecordPollAttempts(string, int)      {}
func (NopMetrics) TrackInFlight() func()               { return func() {} }
