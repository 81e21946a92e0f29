package analysis

import (
	"encoding/json"

	"github.com/ahrav/go-valence/internal/domain"
)

// responseSlice is the subset of an OutputRecord the analysis stages read.
type responseSlice struct {
	ResponseText *string `json:"response_text"`
	Meta         struct {
		Category         string `json:"category"`
		ExpectedBehavior string `json:"expected_behavior"`
	} `json:"meta"`
}

// ResponseRows projects raw response records into scorer input, in ledger
// order. Records without a string response_text are skipped.
func ResponseRows(byID map[string]json.RawMessage, order []string) []ResponseRow {
	rows := make([]ResponseRow, 0, len(order))
	for _, id := range order {
		raw, ok := byID[id]
		if !ok {
			continue
		}
		var slice responseSlice
		if err := json.Unmarshal(raw, &slice); err != nil || slice.ResponseText == nil {
			continue
		}
		rows = append(rows, ResponseRow{PromptID: id, ResponseText: *slice.ResponseText})
	}
	return rows
}

// ResponseMeta extracts the category and expected-behavior side channels
// from raw response records, keyed by prompt id. Records without usable
// meta simply contribute nothing.
func ResponseMeta(byID map[string]json.RawMessage) (map[string]string, map[string]domain.ExpectedBehavior) {
	categories := make(map[string]string, len(byID))
	expected := make(map[string]domain.ExpectedBehavior, len(byID))
	for id, raw := range byID {
		var slice responseSlice
		if err := json.Unmarshal(raw, &slice); err != nil {
			continue
		}
		if slice.Meta.Category != "" {
			categories[id] = slice.Meta.Category
		}
		if slice.Meta.ExpectedBehavior != "" {
			expected[id] = domain.ExpectedBehavior(slice.Meta.ExpectedBehavior)
		}
	}
	return categories, expected
}
