// Package metrics provides Prometheus-backed implementations of the
// pipeline's metrics port, plus a no-op collector for tests and for runs
// where metrics are disabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-valence/internal/ports"
)

var (
	_ ports.MetricsCollector = (*PrometheusCollector)(nil)
	_ ports.MetricsCollector = (*NoopCollector)(nil)
)

// Prometheus label names used across the pipeline's metric vectors.
// Collectors require a fixed label set per vector, so lookups fill
// missing labels with an empty string.
var (
	callLabels  = []string{"model", "status"}
	tokenLabels = []string{"model", "status", "token_type"}
	itemLabels  = []string{"stage", "outcome"}
)

// PrometheusCollector implements the metrics port on top of a Prometheus
// registry. Metrics are registered once at construction; unknown metric
// names fall through to a generic vector keyed by operation.
type PrometheusCollector struct {
	callsTotal   *prometheus.CounterVec
	tokensTotal  *prometheus.CounterVec
	itemsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	opLatency    *prometheus.HistogramVec
	pendingItems *prometheus.GaugeVec
}

// NewPrometheusCollector registers the pipeline's metric vectors with the
// given registerer. A nil registerer uses the default registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valence_llm_calls_total",
			Help: "Total provider calls by model and outcome.",
		}, callLabels),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valence_llm_tokens_total",
			Help: "Total tokens consumed by model, outcome, and direction.",
		}, tokenLabels),
		itemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valence_items_total",
			Help: "Items processed by pipeline stage and outcome.",
		}, itemLabels),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valence_llm_call_duration_seconds",
			Help:    "Provider call latency by model and outcome.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, callLabels),
		opLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valence_operation_duration_seconds",
			Help:    "Latency of pipeline operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		pendingItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "valence_pending_items",
			Help: "Items awaiting processing in the current run.",
		}, []string{"stage"}),
	}
}

// RecordLatency records the execution time of a named operation.
func (c *PrometheusCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	c.opLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter vector matching the metric name.
func (c *PrometheusCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_calls_total":
		c.callsTotal.WithLabelValues(pick(labels, callLabels)...).Add(value)
	case "llm_tokens_total":
		c.tokensTotal.WithLabelValues(pick(labels, tokenLabels)...).Add(value)
	case "items_total":
		c.itemsTotal.WithLabelValues(pick(labels, itemLabels)...).Add(value)
	}
}

// RecordGauge sets the current value of a gauge metric.
func (c *PrometheusCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "pending_items":
		c.pendingItems.WithLabelValues(labels["stage"]).Set(value)
	}
}

// RecordHistogram records a value in the histogram matching the metric name.
func (c *PrometheusCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_call_duration_seconds":
		c.callDuration.WithLabelValues(pick(labels, callLabels)...).Observe(value)
	}
}

// pick extracts label values in vector order, defaulting absent keys to
// the empty string.
func pick(labels map[string]string, keys []string) []string {
	values := make([]string, len(keys))
	for i, key := range keys {
		values[i] = labels[key]
	}
	return values
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

// NewNoopCollector returns a collector that drops everything.
func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (*NoopCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (*NoopCollector) RecordCounter(string, float64, map[string]string)       {}
func (*NoopCollector) RecordGauge(string, float64, map[string]string)         {}
func (*NoopCollector) RecordHistogram(string, float64, map[string]string)     {}
