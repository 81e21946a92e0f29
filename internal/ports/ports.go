// Package ports defines the interfaces between the evaluation pipeline and
// the infrastructure layer. They enable dependency inversion and keep the
// runner and analysis code testable without live providers.
package ports

import (
	"context"
	"time"
)

// LLMClient is the single external call surface the pipeline depends on.
// Implementations handle provider-specific authentication, request
// formatting, and response parsing; middleware layers add retries,
// metrics, and tracing without changing this contract.
type LLMClient interface {
	// Complete sends a prompt and returns the extracted response text.
	// The options map carries provider-level parameters such as
	// "temperature" (float64) or "seed" (int); unsupported parameters
	// may be dropped by the call stack rather than failing the request.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// CompleteWithUsage behaves like Complete and additionally returns
	// the input and output token counts reported by the provider.
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// MetricsCollector abstracts operational metrics so infrastructure can
// plug in Prometheus or a no-op implementation.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
