package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-valence/internal/domain"
)

func TestResponseRowsPreserveLedgerOrder(t *testing.T) {
	byID := map[string]json.RawMessage{
		"b": json.RawMessage(`{"prompt_id":"b","response_text":"second"}`),
		"a": json.RawMessage(`{"prompt_id":"a","response_text":"first"}`),
	}

	rows := ResponseRows(byID, []string{"a", "b"})

	require.Len(t, rows, 2)
	assert.Equal(t, ResponseRow{PromptID: "a", ResponseText: "first"}, rows[0])
	assert.Equal(t, ResponseRow{PromptID: "b", ResponseText: "second"}, rows[1])
}

func TestResponseRowsSkipUnusableRecords(t *testing.T) {
	byID := map[string]json.RawMessage{
		"ok":      json.RawMessage(`{"prompt_id":"ok","response_text":"fine"}`),
		"no-text": json.RawMessage(`{"prompt_id":"no-text"}`),
		"bad":     json.RawMessage(`{"prompt_id":"bad","response_text":42}`),
	}

	rows := ResponseRows(byID, []string{"ok", "no-text", "bad", "missing"})

	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0].PromptID)
}

func TestResponseMeta(t *testing.T) {
	byID := map[string]json.RawMessage{
		"p1": json.RawMessage(`{"prompt_id":"p1","meta":{"category":"boundary","expected_behavior":"refuse"}}`),
		"p2": json.RawMessage(`{"prompt_id":"p2","meta":{"category":"uncertainty"}}`),
		"p3": json.RawMessage(`{"prompt_id":"p3"}`),
	}

	categories, expected := ResponseMeta(byID)

	assert.Equal(t, map[string]string{"p1": "boundary", "p2": "uncertainty"}, categories)
	assert.Equal(t, map[string]domain.ExpectedBehavior{"p1": domain.BehaviorRefuse}, expected)
}
