package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-valence/internal/domain"
)

// categoryOrder fixes the display order of the category breakdown.
var categoryOrder = []string{
	string(domain.CategoryBiomedicalRisk),
	string(domain.CategoryUncertainty),
	string(domain.CategoryBoundary),
}

var titleCaser = cases.Title(language.English)

// displayName turns a snake_case category into its report heading.
func displayName(category string) string {
	return titleCaser.String(strings.ReplaceAll(category, "_", " "))
}

// WriteSafetyText renders the safety report in the one-line-per-metric
// text form.
func WriteSafetyText(w io.Writer, report *SafetyReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "N total: %d\n", report.Total)
	fmt.Fprintf(&b, "cautious_rate: %.4f\n", report.CautiousRate)
	fmt.Fprintf(&b, "overconfident_rate: %.4f\n", report.OverconfidentRate)
	fmt.Fprintf(&b, "proper_refusal_rate: %.4f\n", report.ProperRefusalRate)
	fmt.Fprintf(&b, "clarification_rate: %.4f\n", report.ClarificationRate)
	fmt.Fprintf(&b, "Agreement with expected_behavior: %.4f\n", report.AgreementRate)
	fmt.Fprintf(&b, "Matches: %d\n", report.AgreementMatches)
	fmt.Fprintf(&b, "Mismatches: %d\n", report.AgreementMismatches)
	if report.AgreementSkipped > 0 {
		fmt.Fprintf(&b, "Skipped (no expected behavior or malformed labels): %d\n", report.AgreementSkipped)
	}

	if len(report.ByCategory) > 0 {
		fmt.Fprintf(&b, "\nBy category:\n")
		for _, category := range categoryOrder {
			rates, ok := report.ByCategory[category]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: n=%d cautious_rate=%.4f overconfident_rate=%.4f proper_refusal_rate=%.4f clarification_rate=%.4f\n",
				displayName(category), rates.N, rates.CautiousRate, rates.OverconfidentRate,
				rates.ProperRefusalRate, rates.ClarificationRate)
		}
		// Categories outside the fixed order still get printed, sorted.
		extras := make([]string, 0)
		for category := range report.ByCategory {
			if !slices.Contains(categoryOrder, category) {
				extras = append(extras, category)
			}
		}
		sort.Strings(extras)
		for _, category := range extras {
			rates := report.ByCategory[category]
			fmt.Fprintf(&b, "- %s: n=%d cautious_rate=%.4f overconfident_rate=%.4f proper_refusal_rate=%.4f clarification_rate=%.4f\n",
				displayName(category), rates.N, rates.CautiousRate, rates.OverconfidentRate,
				rates.ProperRefusalRate, rates.ClarificationRate)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteValuesText renders the value-orientation report in text form.
func WriteValuesText(w io.Writer, report *ValuesReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "N total: %d\n", report.Total)
	fmt.Fprintf(&b, "Value Orientation Vector (mean lexical score):\n")
	for _, axis := range domain.Axes {
		fmt.Fprintf(&b, "- %s: %.4f\n", axis, report.Orientation[axis])
	}
	fmt.Fprintf(&b, "Dominant axis: %s\n", report.DominantAxis)
	fmt.Fprintf(&b, "Framing Sensitivity Index (mean pairwise L1): %.4f\n", report.FramingSensitivityIndex)
	fmt.Fprintf(&b, "Value Invariance Score: %.4f\n", report.ValueInvariance)
	fmt.Fprintf(&b, "Frame Dominance Index: %.4f\n", report.FrameDominanceIndex)
	fmt.Fprintf(&b, "Stuck cases: %d (rate %.4f)\n", report.StuckCases, report.StuckCaseRate)

	if len(report.ByCase) > 0 {
		fmt.Fprintf(&b, "\nBy case:\n")
		caseIDs := make([]string, 0, len(report.ByCase))
		for caseID := range report.ByCase {
			caseIDs = append(caseIDs, caseID)
		}
		sort.Strings(caseIDs)
		for _, caseID := range caseIDs {
			cv := report.ByCase[caseID]
			fmt.Fprintf(&b, "- %s: frames=%d frame_pairs=%d mean_l1=%.4f modal_axis=%s consistency=%.4f stuck=%t\n",
				caseID, len(cv.Frames), len(cv.Pairwise), cv.MeanDistance,
				cv.ModalDominantAxis, cv.Consistency, cv.Stuck)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders either report as indented JSON.
func WriteJSON(w io.Writer, report any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
