package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCore scripts the behavior of a provider core for retry tests.
type fakeCore struct {
	attempts int
	respond  func(attempt int, opts map[string]any) (string, int, int, error)
}

func (f *fakeCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	f.attempts++
	return f.respond(f.attempts, opts)
}

func (f *fakeCore) GetModel() string { return "fake-model" }

// testSchedule keeps retry tests fast while preserving six total attempts.
var testSchedule = []time.Duration{
	time.Millisecond,
	time.Millisecond,
	time.Millisecond,
	time.Millisecond,
	time.Millisecond,
}

func wrapWithRetry(core CoreLLM, schedule []time.Duration) CoreLLM {
	return RetryMiddleware(schedule, zap.NewNop())(core)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	transient := NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		if attempt < 3 {
			return "", 0, 0, transient
		}
		return "ok", 10, 5, nil
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	response, tokensIn, tokensOut, err := wrapped.DoRequest(context.Background(), "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Equal(t, 10, tokensIn)
	assert.Equal(t, 5, tokensOut)
	assert.Equal(t, 3, core.attempts)
}

func TestRetryExhaustsTransientBudget(t *testing.T) {
	transient := NewProviderError("openai", ErrorTypeServerError, 500, "internal", nil)
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		return "", 0, 0, transient
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	_, _, _, err := wrapped.DoRequest(context.Background(), "hi", nil)

	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeServerError, perr.Type)
	// The initial call plus one retry per schedule entry.
	assert.Equal(t, 6, core.attempts)
}

func TestRetryFatalErrorNotRetried(t *testing.T) {
	fatal := NewProviderError("openai", ErrorTypeAuthentication, 401, "bad key", nil)
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		return "", 0, 0, fatal
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	_, _, _, err := wrapped.DoRequest(context.Background(), "hi", nil)

	require.Error(t, err)
	assert.Equal(t, 1, core.attempts)
}

func TestRetryUnclassifiedErrorNotRetried(t *testing.T) {
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		return "", 0, 0, errors.New("something odd")
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	_, _, _, err := wrapped.DoRequest(context.Background(), "hi", nil)

	require.Error(t, err)
	assert.Equal(t, 1, core.attempts)
}

func TestRetryDropsUnsupportedParamWithoutConsumingBudget(t *testing.T) {
	rejection := NewProviderError("openai", ErrorTypeBadRequest, 400,
		"Unsupported parameter: 'seed' is not supported with this model.", nil)
	transient := NewProviderError("openai", ErrorTypeServerError, 500, "internal", nil)

	var seenSeed []bool
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		_, hasSeed := opts["seed"]
		seenSeed = append(seenSeed, hasSeed)
		if attempt == 1 {
			return "", 0, 0, rejection
		}
		return "", 0, 0, transient
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	opts := map[string]any{"seed": 42, "temperature": 0.0}
	_, _, _, err := wrapped.DoRequest(context.Background(), "hi", opts)

	require.Error(t, err)
	// The drop-and-repeat call does not count against the transient budget:
	// one rejected call, then six transient attempts.
	assert.Equal(t, 7, core.attempts)
	require.Len(t, seenSeed, 7)
	assert.True(t, seenSeed[0])
	for _, hasSeed := range seenSeed[1:] {
		assert.False(t, hasSeed)
	}
	// The caller's map is untouched.
	assert.Contains(t, opts, "seed")
}

func TestRetryUnsupportedParamAlreadyAbsentEscalates(t *testing.T) {
	rejection := NewProviderError("openai", ErrorTypeBadRequest, 400,
		"Unsupported parameter: 'seed' is not supported with this model.", nil)
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		return "", 0, 0, rejection
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	opts := map[string]any{"seed": 42}
	_, _, _, err := wrapped.DoRequest(context.Background(), "hi", opts)

	require.Error(t, err)
	// First call rejects and drops the field; the second rejection cannot
	// drop anything, and bad requests are not transient.
	assert.Equal(t, 2, core.attempts)
}

func TestRetryCancellationPropagatesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		cancel()
		return "", 0, 0, ctx.Err()
	}}

	wrapped := wrapWithRetry(core, testSchedule)
	_, _, _, err := wrapped.DoRequest(ctx, "hi", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "call interrupted")
	assert.Equal(t, 1, core.attempts)
}

func TestRetryCancellationDuringBackoff(t *testing.T) {
	transient := NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	core := &fakeCore{respond: func(attempt int, opts map[string]any) (string, int, int, error) {
		return "", 0, 0, transient
	}}

	ctx, cancel := context.WithCancel(context.Background())
	wrapped := wrapWithRetry(core, []time.Duration{time.Hour})

	done := make(chan error, 1)
	go func() {
		_, _, _, err := wrapped.DoRequest(ctx, "hi", nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not abort on cancellation")
	}
	assert.Equal(t, 1, core.attempts)
}

func TestDefaultRetrySchedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	assert.Equal(t, want, DefaultRetrySchedule)
}
