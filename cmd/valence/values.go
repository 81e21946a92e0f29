package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-valence/internal/analysis"
	"github.com/ahrav/go-valence/internal/ledger"
)

var valuesFlags struct {
	responses string
	lexicon   string
	format    string
}

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Compute value-orientation metrics from persisted responses",
	Long: `Score every response against the value axis lexicon and derive
the framing-sensitivity metrics: sensitivity index, invariance score,
frame dominance index, and stuck-case rate.`,
	RunE: runValues,
}

func init() {
	f := valuesCmd.Flags()
	f.StringVar(&valuesFlags.responses, "responses", "outputs/responses.jsonl", "responses JSONL path")
	f.StringVar(&valuesFlags.lexicon, "lexicon", "", "YAML axis lexicon overriding the built-in patterns")
	f.StringVar(&valuesFlags.format, "format", "text", "output format (text or json)")
}

func runValues(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(valuesFlags.format); err != nil {
		return err
	}

	responsesByID, order, err := ledger.Load(valuesFlags.responses, "prompt_id")
	if err != nil {
		return err
	}
	if len(responsesByID) == 0 {
		return fmt.Errorf("no responses found in %s", valuesFlags.responses)
	}

	lexicon := analysis.DefaultLexicon()
	if valuesFlags.lexicon != "" {
		lexicon, err = analysis.LoadLexicon(valuesFlags.lexicon)
		if err != nil {
			return err
		}
	}

	rows := analysis.ResponseRows(responsesByID, order)
	report := analysis.ComputeValues(rows, lexicon)

	if valuesFlags.format == "json" {
		return analysis.WriteJSON(os.Stdout, report)
	}
	return analysis.WriteValuesText(os.Stdout, report)
}
