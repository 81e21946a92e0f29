package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahrav/go-valence/internal/ledger"
)

type testRecord struct {
	PromptID string `json:"prompt_id"`
	Value    string `json:"value"`
}

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	store, err := ledger.Open(path, "prompt_id", &ledger.AtomicRewrite{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEngineProcessesAllPending(t *testing.T) {
	store := openTestLedger(t)
	engine := NewEngine("response", store, Config{MaxItems: -1}, zap.NewNop(), nil)

	var processed []string
	summary, err := engine.Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) (any, error) {
		processed = append(processed, id)
		return testRecord{PromptID: id, Value: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, processed)
	assert.Equal(t, Summary{Total: 3, Completed: 3}, summary)
	assert.Equal(t, []string{"a", "b", "c"}, store.Order())
}

func TestEngineSkipsCachedItems(t *testing.T) {
	store := openTestLedger(t)
	require.NoError(t, store.Upsert("a", testRecord{PromptID: "a", Value: "cached"}))

	engine := NewEngine("response", store, Config{MaxItems: -1}, zap.NewNop(), nil)

	var processed []string
	summary, err := engine.Run(context.Background(), []string{"a", "b"}, func(ctx context.Context, id string) (any, error) {
		processed = append(processed, id)
		return testRecord{PromptID: id, Value: "new"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, processed)
	assert.Equal(t, Summary{Total: 2, Completed: 1, SkippedCached: 1}, summary)

	// The cached record is untouched.
	raw, ok := store.Get("a")
	require.True(t, ok)
	assert.Contains(t, string(raw), "cached")
}

func TestEngineForceReprocessesCached(t *testing.T) {
	store := openTestLedger(t)
	require.NoError(t, store.Upsert("a", testRecord{PromptID: "a", Value: "old"}))
	require.NoError(t, store.Upsert("b", testRecord{PromptID: "b", Value: "old"}))

	engine := NewEngine("response", store, Config{Force: true, MaxItems: -1}, zap.NewNop(), nil)

	summary, err := engine.Run(context.Background(), []string{"a", "b"}, func(ctx context.Context, id string) (any, error) {
		return testRecord{PromptID: id, Value: "new"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Completed: 2}, summary)

	// Replacement preserves first-seen order.
	assert.Equal(t, []string{"a", "b"}, store.Order())
	raw, _ := store.Get("a")
	assert.Contains(t, string(raw), "new")
}

func TestEngineMaxItemsBoundsUncachedTail(t *testing.T) {
	store := openTestLedger(t)
	require.NoError(t, store.Upsert("a", testRecord{PromptID: "a"}))

	engine := NewEngine("response", store, Config{MaxItems: 1}, zap.NewNop(), nil)

	var processed []string
	summary, err := engine.Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) (any, error) {
		processed = append(processed, id)
		return testRecord{PromptID: id}, nil
	})

	require.NoError(t, err)
	// The cap applies to the uncached tail, not the full id list.
	assert.Equal(t, []string{"b"}, processed)
	assert.Equal(t, Summary{Total: 3, Completed: 1, SkippedCached: 1}, summary)
}

func TestEngineZeroMaxItemsProcessesNothing(t *testing.T) {
	store := openTestLedger(t)
	engine := NewEngine("response", store, Config{MaxItems: 0}, zap.NewNop(), nil)

	summary, err := engine.Run(context.Background(), []string{"a"}, func(ctx context.Context, id string) (any, error) {
		t.Fatal("should not process any item")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1}, summary)
}

func TestEnginePerItemFailureContinuesBatch(t *testing.T) {
	store := openTestLedger(t)
	engine := NewEngine("response", store, Config{MaxItems: -1}, zap.NewNop(), nil)

	summary, err := engine.Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) (any, error) {
		if id == "b" {
			return nil, errors.New("model exploded")
		}
		return testRecord{PromptID: id}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Completed: 2, Failed: 1}, summary)
	assert.False(t, store.Has("b"))
	assert.Equal(t, []string{"a", "c"}, store.Order())
}

func TestEngineInterruptionAbandonsInFlightItem(t *testing.T) {
	store := openTestLedger(t)
	engine := NewEngine("response", store, Config{MaxItems: -1}, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	summary, err := engine.Run(ctx, []string{"a", "b", "c"}, func(ctx context.Context, id string) (any, error) {
		if id == "b" {
			cancel()
			return nil, ctx.Err()
		}
		return testRecord{PromptID: id}, nil
	})

	require.ErrorIs(t, err, ErrInterrupted)
	// The first item committed before the interrupt stays durable; the
	// interrupted item is not counted as failed.
	assert.Equal(t, Summary{Total: 3, Completed: 1}, summary)
	assert.True(t, store.Has("a"))
	assert.False(t, store.Has("b"))
	assert.False(t, store.Has("c"))
}

func TestEnginePendingPreview(t *testing.T) {
	store := openTestLedger(t)
	require.NoError(t, store.Upsert("a", testRecord{PromptID: "a"}))

	engine := NewEngine("response", store, Config{MaxItems: -1}, zap.NewNop(), nil)
	assert.Equal(t, []string{"b"}, engine.Pending([]string{"a", "b"}))

	forced := NewEngine("response", store, Config{Force: true, MaxItems: -1}, zap.NewNop(), nil)
	assert.Equal(t, []string{"a", "b"}, forced.Pending([]string{"a", "b"}))
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 10, Completed: 7, SkippedCached: 2, Failed: 1}
	assert.Equal(t, "total=10 completed=7 skipped_cached=2 failed=1", s.String())
}
