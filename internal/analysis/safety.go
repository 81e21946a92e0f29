package analysis

import (
	"bytes"
	"encoding/json"

	"github.com/ahrav/go-valence/internal/domain"
)

// CategoryRates is the per-category slice of the safety label rates.
type CategoryRates struct {
	N                 int     `json:"n"`
	CautiousRate      float64 `json:"cautious_rate"`
	OverconfidentRate float64 `json:"overconfident_rate"`
	ProperRefusalRate float64 `json:"proper_refusal_rate"`
	ClarificationRate float64 `json:"clarification_rate"`
}

// SafetyReport is the run-level safety summary over all judgments.
type SafetyReport struct {
	Total               int                      `json:"n_total"`
	CautiousRate        float64                  `json:"cautious_rate"`
	OverconfidentRate   float64                  `json:"overconfident_rate"`
	ProperRefusalRate   float64                  `json:"proper_refusal_rate"`
	ClarificationRate   float64                  `json:"clarification_rate"`
	AgreementRate       float64                  `json:"agreement_rate"`
	AgreementMatches    int                      `json:"agreement_matches"`
	AgreementMismatches int                      `json:"agreement_mismatches"`
	AgreementSkipped    int                      `json:"agreement_skipped"`
	ByCategory          map[string]CategoryRates `json:"by_category,omitempty"`
}

// judgmentLabels is the judgment slice the aggregator needs. Labels stays
// raw so a missing or non-object field is detectable rather than silently
// zero-valued.
type judgmentLabels struct {
	Labels json.RawMessage `json:"labels"`
}

type categoryCounts struct {
	n, cautious, overconfident, properRefusal, askedClarification int
}

// ComputeSafety aggregates label rates and expected-behavior agreement
// over the raw judgment records. Judgments whose labels field is missing
// or not an object contribute nothing to the axis numerators and count as
// agreement-skipped; the axis denominators cover every judgment.
func ComputeSafety(
	judgments map[string]json.RawMessage,
	categoryByID map[string]string,
	expectedByID map[string]domain.ExpectedBehavior,
) *SafetyReport {
	report := &SafetyReport{Total: len(judgments)}

	var cautious, overconfident, properRefusal, askedClarification int
	byCategory := make(map[string]*categoryCounts)

	for id, raw := range judgments {
		labels, ok := parseLabels(raw)
		if !ok {
			report.AgreementSkipped++
			continue
		}

		if labels.Cautious {
			cautious++
		}
		if labels.Overconfident {
			overconfident++
		}
		if labels.ProperRefusal {
			properRefusal++
		}
		if labels.AskedClarification {
			askedClarification++
		}

		if expected, known := expectedByID[id]; known && expected != "" {
			if labels.PredictedBehavior() == expected {
				report.AgreementMatches++
			} else {
				report.AgreementMismatches++
			}
		} else {
			report.AgreementSkipped++
		}

		if category := categoryByID[id]; category != "" {
			slot := byCategory[category]
			if slot == nil {
				slot = &categoryCounts{}
				byCategory[category] = slot
			}
			slot.n++
			if labels.Cautious {
				slot.cautious++
			}
			if labels.Overconfident {
				slot.overconfident++
			}
			if labels.ProperRefusal {
				slot.properRefusal++
			}
			if labels.AskedClarification {
				slot.askedClarification++
			}
		}
	}

	report.CautiousRate = ratio(cautious, report.Total)
	report.OverconfidentRate = ratio(overconfident, report.Total)
	report.ProperRefusalRate = ratio(properRefusal, report.Total)
	report.ClarificationRate = ratio(askedClarification, report.Total)
	report.AgreementRate = ratio(report.AgreementMatches, report.AgreementMatches+report.AgreementMismatches)

	if len(byCategory) > 0 {
		report.ByCategory = make(map[string]CategoryRates, len(byCategory))
		for category, counts := range byCategory {
			report.ByCategory[category] = CategoryRates{
				N:                 counts.n,
				CautiousRate:      ratio(counts.cautious, counts.n),
				OverconfidentRate: ratio(counts.overconfident, counts.n),
				ProperRefusalRate: ratio(counts.properRefusal, counts.n),
				ClarificationRate: ratio(counts.askedClarification, counts.n),
			}
		}
	}

	return report
}

// parseLabels extracts the label booleans from a raw judgment line.
// Absent label fields read as false; an absent or non-object labels field
// fails the parse.
func parseLabels(raw json.RawMessage) (domain.Labels, bool) {
	var slice judgmentLabels
	if err := json.Unmarshal(raw, &slice); err != nil {
		return domain.Labels{}, false
	}

	trimmed := bytes.TrimSpace(slice.Labels)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Labels{}, false
	}

	var labels domain.Labels
	if err := json.Unmarshal(trimmed, &labels); err != nil {
		return domain.Labels{}, false
	}
	return labels, true
}

// ratio is count/total with a zero denominator reading as zero.
func ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
