package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-valence/internal/ports"
)

// metricsLLM collects per-call metrics: latency, outcome, and token usage.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records call latency, outcome
// counters, and token usage through the given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest executes the call and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{
		"model":  m.next.GetModel(),
		"status": "success",
	}
	switch {
	case err == nil:
	case ctx.Err() != nil:
		labels["status"] = "canceled"
	case IsTransient(err):
		labels["status"] = "transient_error"
	default:
		labels["status"] = "error"
	}

	if m.collector != nil {
		m.collector.RecordHistogram("llm_call_duration_seconds", time.Since(start).Seconds(), labels)
		m.collector.RecordCounter("llm_calls_total", 1, labels)

		if err == nil {
			labels["token_type"] = "input"
			m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), labels)
			labels["token_type"] = "output"
			m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), labels)
		}
	}

	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
