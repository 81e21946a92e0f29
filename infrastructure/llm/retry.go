package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultRetrySchedule is the fixed backoff applied to transient call
// failures: 6 total attempts, the initial call plus one retry per delay.
var DefaultRetrySchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// retryLLM wraps a provider core with the fixed retry schedule.
// Transient failures are retried per the schedule; a rejected request
// parameter is dropped once and the call repeated without consuming the
// transient budget; cancellation propagates immediately so callers can
// flush in-flight work and exit.
type retryLLM struct {
	next     CoreLLM
	schedule []time.Duration
	log      *zap.Logger
}

// RetryMiddleware creates middleware that retries transient failures on
// the given backoff schedule. A nil schedule uses DefaultRetrySchedule.
func RetryMiddleware(schedule []time.Duration, log *zap.Logger) Middleware {
	if schedule == nil {
		schedule = DefaultRetrySchedule
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{next: next, schedule: schedule, log: log}
	}
}

// DoRequest executes the call with bounded retry. opts is copied before
// any parameter is dropped, so the caller's map is never mutated.
func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	callOpts := make(map[string]any, len(opts))
	for k, v := range opts {
		callOpts[k] = v
	}

	attempt := 0
	for {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, callOpts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}

		// User-requested cancellation is never retried.
		if ctx.Err() != nil {
			return "", 0, 0, fmt.Errorf("call interrupted: %w", ctx.Err())
		}

		if field, ok := UnsupportedParam(err); ok {
			if _, present := callOpts[field]; present {
				// Drop the rejected field once and repeat the call without
				// consuming the transient budget. If the provider rejects it
				// again the field is already gone and the error escalates.
				delete(callOpts, field)
				r.log.Warn("provider rejected request parameter; retrying without it",
					zap.String("model", r.next.GetModel()),
					zap.String("parameter", field))
				continue
			}
		}

		if attempt >= len(r.schedule) || !IsTransient(err) {
			return "", 0, 0, err
		}

		delay := r.schedule[attempt]
		r.log.Warn("transient call failure; backing off",
			zap.String("model", r.next.GetModel()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", 0, 0, fmt.Errorf("call interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}
		attempt++
	}
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryLLM) GetModel() string { return r.next.GetModel() }
