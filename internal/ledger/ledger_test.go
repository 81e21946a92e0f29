package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	PromptID string `json:"prompt_id"`
	Text     string `json:"text"`
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	byID, order, err := Load(filepath.Join(t.TempDir(), "missing.jsonl"), "prompt_id")
	require.NoError(t, err)
	assert.Empty(t, byID)
	assert.Empty(t, order)
}

func TestLoad_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"prompt_id\":\"a\"}\nnot json\n"), 0o600))

	_, _, err := Load(path, "prompt_id")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestLoad_MissingIDField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"other\":1}\n"), 0o600))

	_, _, err := Load(path, "prompt_id")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestLoad_EmptyIDField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"prompt_id\":\"\"}\n"), 0o600))

	_, _, err := Load(path, "prompt_id")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestUpsert_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	led, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	defer led.Close()

	rec := testRecord{PromptID: "a", Text: "hello"}
	require.NoError(t, led.Upsert("a", rec))
	first := readFile(t, path)

	require.NoError(t, led.Upsert("a", rec))
	second := readFile(t, path)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated upsert changed file contents (-first +second):\n%s", diff)
	}
}

func TestUpsert_UniqueIDsAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	led, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	defer led.Close()

	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a", Text: "1"}))
	require.NoError(t, led.Upsert("b", testRecord{PromptID: "b", Text: "2"}))
	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a", Text: "updated"}))

	assert.Equal(t, []string{"a", "b"}, led.Order(), "updates must not reorder ids")
	assert.Equal(t, 2, led.Len())

	byID, order, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	require.Len(t, byID, 2)

	var a testRecord
	require.NoError(t, json.Unmarshal(byID["a"], &a))
	assert.Equal(t, "updated", a.Text, "upsert must replace, not duplicate")
}

func TestUpsert_OrderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	led, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	require.NoError(t, led.Upsert("x", testRecord{PromptID: "x"}))
	require.NoError(t, led.Upsert("y", testRecord{PromptID: "y"}))
	require.NoError(t, led.Close())

	led2, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	defer led2.Close()

	// Updating only the later id must keep x first on disk.
	require.NoError(t, led2.Upsert("y", testRecord{PromptID: "y", Text: "v2"}))
	_, order, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, order)
}

func TestAtomicRewrite_StaleTempFileIsHarmless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	// A leftover temp file from a crashed run must not corrupt the store.
	stale := filepath.Join(dir, ".out.jsonl.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("{\"truncated"), 0o600))

	led, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	defer led.Close()

	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a", Text: "ok"}))

	byID, _, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "temp file must be consumed by the rename")
}

func TestAtomicRewrite_DestinationNeverPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	led, err := Open(path, "prompt_id", NewAtomicRewrite())
	require.NoError(t, err)
	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a", Text: "committed"}))
	require.NoError(t, led.Close())

	before := readFile(t, path)

	// Simulate the window between temp-file write and rename: the temp
	// sibling exists but the commit never happened. The destination must
	// still hold the previous complete state.
	stale := filepath.Join(dir, ".out.jsonl.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("{\"prompt_id\":\"b\"}\n{\"prompt_id\":"), 0o600))

	assert.Equal(t, before, readFile(t, path))
	byID, _, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Len(t, byID, 1)
}

func TestAppendOnly_AppendsWithoutRewriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	led, err := Open(path, "prompt_id", NewAppendOnly())
	require.NoError(t, err)
	defer led.Close()

	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a", Text: "1"}))
	afterFirst := readFile(t, path)
	require.NoError(t, led.Upsert("b", testRecord{PromptID: "b", Text: "2"}))
	afterSecond := readFile(t, path)

	assert.True(t, len(afterSecond) > len(afterFirst))
	assert.Equal(t, afterFirst, afterSecond[:len(afterFirst)],
		"append mode must never rewrite existing lines")

	_, order, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestAppendOnly_RejectsOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	led, err := Open(path, "prompt_id", NewAppendOnly())
	require.NoError(t, err)
	defer led.Close()

	require.NoError(t, led.Upsert("a", testRecord{PromptID: "a"}))
	err = led.Upsert("a", testRecord{PromptID: "a", Text: "v2"})
	require.ErrorIs(t, err, ErrAppendExisting)
}

func TestAppendOnly_ResumesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"prompt_id\":\"a\",\"text\":\"old\"}\n"), 0o600))

	led, err := Open(path, "prompt_id", NewAppendOnly())
	require.NoError(t, err)
	defer led.Close()

	assert.True(t, led.Has("a"))
	require.NoError(t, led.Upsert("b", testRecord{PromptID: "b"}))

	_, order, err := Load(path, "prompt_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}
