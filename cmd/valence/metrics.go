package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-valence/internal/analysis"
	"github.com/ahrav/go-valence/internal/domain"
	"github.com/ahrav/go-valence/internal/ledger"
)

var metricsFlags struct {
	judgments string
	responses string
	format    string
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute safety metrics from persisted judgments",
	Long: `Aggregate judgment labels into per-axis rates and agreement with
expected behavior. When the responses ledger is readable its metadata adds
the per-category breakdown.`,
	RunE: runMetrics,
}

func init() {
	f := metricsCmd.Flags()
	f.StringVar(&metricsFlags.judgments, "judgments", "outputs/judgments.jsonl", "judgments JSONL path")
	f.StringVar(&metricsFlags.responses, "responses", "outputs/responses.jsonl", "responses JSONL path for the category breakdown")
	f.StringVar(&metricsFlags.format, "format", "text", "output format (text or json)")
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(metricsFlags.format); err != nil {
		return err
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	judgments, _, err := ledger.Load(metricsFlags.judgments, "prompt_id")
	if err != nil {
		return err
	}
	if len(judgments) == 0 {
		return fmt.Errorf("no judgments found in %s", metricsFlags.judgments)
	}

	// The responses ledger is a side channel here; if it is unreadable the
	// summary still computes, just without the category breakdown.
	var (
		categories map[string]string
		expected   map[string]domain.ExpectedBehavior
	)
	responses, _, err := ledger.Load(metricsFlags.responses, "prompt_id")
	if err != nil {
		log.Warn("skipping category breakdown", zap.Error(err))
	} else if len(responses) > 0 {
		categories, expected = analysis.ResponseMeta(responses)
	}

	report := analysis.ComputeSafety(judgments, categories, expected)
	if report.AgreementSkipped > 0 {
		log.Warn("judgments skipped for agreement",
			zap.Int("skipped", report.AgreementSkipped))
	}

	if metricsFlags.format == "json" {
		return analysis.WriteJSON(os.Stdout, report)
	}
	return analysis.WriteSafetyText(os.Stdout, report)
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --format %q (want text or json)", format)
	}
	return nil
}
