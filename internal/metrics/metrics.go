// Package metrics exposes pipeline call outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spigell/hiring-pipeline/internal/calllog"
)

const namespace = "hiring_pipeline"

// Recorder turns call log entries into Prometheus metrics. It implements calllog.Sink.
type Recorder struct {
	registry *prometheus.Registry

	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
	coercions *prometheus.CounterVec
}

// New registers the pipeline collectors on a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Completed generation calls by operation and outcome.",
			},
			[]string{"operation", "status"}, // status: "success" or the error kind
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_latency_seconds",
				Help:      "Model round-trip latency in seconds.",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"operation", "model"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Tokens consumed by generation calls.",
			},
			[]string{"operation", "direction"}, // direction: "input" or "output"
		),
		coercions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coercions_total",
				Help:      "Responses that passed validation only after coercion.",
			},
			[]string{"operation"},
		),
	}
}

// Observe implements calllog.Sink.
func (r *Recorder) Observe(e calllog.Entry) {
	status := "success"
	if e.Failed() {
		status = e.ErrorKind
		if status == "" {
			status = "error"
		}
	}

	r.calls.WithLabelValues(e.Endpoint, status).Inc()
	if e.LatencyMs > 0 {
		r.latency.WithLabelValues(e.Endpoint, e.Model).Observe(float64(e.LatencyMs) / 1000)
	}
	r.tokens.WithLabelValues(e.Endpoint, "input").Add(float64(e.InputTokens))
	r.tokens.WithLabelValues(e.Endpoint, "output").Add(float64(e.OutputTokens))
	if e.CoercionApplied {
		r.coercions.WithLabelValues(e.Endpoint).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
