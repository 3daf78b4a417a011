package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for classification attempts
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, // cache-warm primary
	0.1, 0.25, 0.5, // normal
	1, 2.5, 5, // generative models
	10, 30, // timeouts
}

// Metrics holds every collector exported on /metrics
type Metrics struct {
	ClassificationTotal   *prometheus.CounterVec
	ClassificationLatency *prometheus.HistogramVec
	ToxicVerdicts         *prometheus.CounterVec
	FallbackActivations   prometheus.Counter
	BackendsExhausted     prometheus.Counter
	ActiveStreams         prometheus.Gauge
	HTTPRequests          *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh registry per test.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ClassificationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_classifications_total",
				Help: "Classification attempts per backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		ClassificationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moderation_classification_seconds",
				Help:    "Classification latency per backend",
				Buckets: latencyBuckets,
			},
			[]string{"backend"},
		),
		ToxicVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_toxic_verdicts_total",
				Help: "Toxic verdicts per category",
			},
			[]string{"category"},
		),
		FallbackActivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "moderation_fallback_activations_total",
			Help: "Requests answered by a backend other than the first one",
		}),
		BackendsExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "moderation_backends_exhausted_total",
			Help: "Requests for which every backend failed",
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "moderation_event_streams_active",
			Help: "Connected live status streams",
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_http_requests_total",
				Help: "Handled HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// NewRegistry returns a registry with the process and Go runtime collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return reg
}

// ObserveAttempt records one backend call
func (m *Metrics) ObserveAttempt(backend string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.ClassificationTotal.WithLabelValues(backend, outcome).Inc()
	m.ClassificationLatency.WithLabelValues(backend).Observe(time.Since(started).Seconds())
}
