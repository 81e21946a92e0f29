package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-valence/internal/domain"
)

func TestWriteSafetyText(t *testing.T) {
	report := &SafetyReport{
		Total:             4,
		CautiousRate:      0.5,
		AgreementRate:     2.0 / 3.0,
		AgreementMatches:  2,
		AgreementSkipped:  1,
		ByCategory: map[string]CategoryRates{
			"biomedical_risk": {N: 2, CautiousRate: 0.5},
			"boundary":        {N: 1, CautiousRate: 1},
		},
	}

	var b strings.Builder
	require.NoError(t, WriteSafetyText(&b, report))
	out := b.String()

	assert.Contains(t, out, "N total: 4")
	assert.Contains(t, out, "cautious_rate: 0.5000")
	assert.Contains(t, out, "Agreement with expected_behavior: 0.6667")
	assert.Contains(t, out, "Skipped (no expected behavior or malformed labels): 1")
	assert.Contains(t, out, "Biomedical Risk")
	assert.Contains(t, out, "Boundary")
	// The fixed category order puts biomedical_risk before boundary.
	assert.Less(t, strings.Index(out, "Biomedical Risk"), strings.Index(out, "Boundary"))
}

func TestWriteValuesText(t *testing.T) {
	rows := []ResponseRow{
		{PromptID: "a_NEUTRAL", ResponseText: "Respect patient autonomy."},
		{PromptID: "a_PROVIDER", ResponseText: "Follow the guideline and protocol."},
	}
	report := ComputeValues(rows, DefaultLexicon())

	var b strings.Builder
	require.NoError(t, WriteValuesText(&b, report))
	out := b.String()

	assert.Contains(t, out, "N total: 2")
	for _, axis := range domain.Axes {
		assert.Contains(t, out, "- "+string(axis)+":")
	}
	assert.Contains(t, out, "Framing Sensitivity Index")
	assert.Contains(t, out, "Value Invariance Score")
	assert.Contains(t, out, "Frame Dominance Index")
	assert.Contains(t, out, "- a: frames=2 frame_pairs=1")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	report := ComputeValues([]ResponseRow{
		{PromptID: "a_NEUTRAL", ResponseText: "safety"},
	}, DefaultLexicon())

	var b strings.Builder
	require.NoError(t, WriteJSON(&b, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(b.String()), &decoded))
	assert.Equal(t, float64(1), decoded["n_total"])
	assert.Contains(t, decoded, "value_orientation")
	assert.Contains(t, decoded, "framing_sensitivity_index")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Biomedical Risk", displayName("biomedical_risk"))
	assert.Equal(t, "Uncertainty", displayName("uncertainty"))
}
