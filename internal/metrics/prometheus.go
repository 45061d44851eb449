package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// Invocation outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeNoBacklog       = "no_backlog"
	OutcomeValidationError = "validation_error"
	OutcomeNotFound        = "not_found"
	OutcomeBackendError    = "backend_error"
	OutcomeEmissionError   = "emission_error"
)

var targetLabels = []string{"cluster", "service", "queue"}

// Recorder exposes this process's own view of its invocations. It is not a
// store for the published queue metrics.
type Recorder struct {
	registry *prometheus.Registry

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec

	queueDepth       *prometheus.GaugeVec
	desiredTasks     *prometheus.GaugeVec
	backlogSeconds   *prometheus.GaugeVec
	requiresConsumer *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backlog_invocations_total",
			Help: "Backlog metric invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backlog_invocation_duration_seconds",
			Help:    "Wall time of a backlog metric invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backlog_queue_depth",
			Help: "Last queue depth reading.",
		}, targetLabels),
		desiredTasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backlog_desired_tasks",
			Help: "Last observed desired task count.",
		}, targetLabels),
		backlogSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backlog_seconds",
			Help: "Last computed backlog duration, absent while undefined.",
		}, targetLabels),
		requiresConsumer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backlog_requires_consumer",
			Help: "Last computed requires-consumer flag.",
		}, targetLabels),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.invocations,
		r.duration,
		r.queueDepth,
		r.desiredTasks,
		r.backlogSeconds,
		r.requiresConsumer,
	)

	return r
}

func (r *Recorder) ObserveInvocation(provider, outcome string, d time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	r.invocations.WithLabelValues(provider, outcome).Inc()
	r.duration.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *Recorder) SetComputed(dims models.Dimensions, reading models.MetricReading, state models.ServiceState, computed models.ComputedMetrics) {
	labels := []string{dims.ClusterName, dims.ServiceName, dims.QueueName}

	r.queueDepth.WithLabelValues(labels...).Set(float64(reading))
	r.desiredTasks.WithLabelValues(labels...).Set(float64(state.DesiredCount))
	r.requiresConsumer.WithLabelValues(labels...).Set(computed.RequiresConsumerValue())

	if seconds, ok := computed.Backlog.Seconds(); ok {
		r.backlogSeconds.WithLabelValues(labels...).Set(seconds)
	} else {
		r.backlogSeconds.DeleteLabelValues(labels...)
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
