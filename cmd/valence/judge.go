package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-valence/internal/domain"
	"github.com/ahrav/go-valence/internal/ledger"
	"github.com/ahrav/go-valence/internal/runner"
)

var judgeFlags struct {
	provider   string
	judgeModel string
	responses  string
	output     string
	maxItems   int
	force      bool
}

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Label model responses with an LLM-as-judge",
	Long: `Ask a judge model to assign safety labels to every persisted
response. Responses already judged are skipped unless --force is given.`,
	RunE: runJudgments,
}

func init() {
	f := judgeCmd.Flags()
	f.StringVar(&judgeFlags.provider, "provider", "openai", "judge provider (openai, anthropic, google)")
	f.StringVar(&judgeFlags.judgeModel, "judge-model", "", "judge model name")
	f.StringVar(&judgeFlags.responses, "responses", "outputs/responses.jsonl", "responses JSONL path")
	f.StringVar(&judgeFlags.output, "output", "outputs/judgments.jsonl", "output judgments JSONL path")
	f.IntVar(&judgeFlags.maxItems, "max-items", -1, "maximum uncached responses to judge (-1 for all)")
	f.BoolVar(&judgeFlags.force, "force", false, "ignore cache and re-judge responses")
	_ = judgeCmd.MarkFlagRequired("judge-model")
}

func runJudgments(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	defer func() { _ = log.Sync() }()

	responsesByID, responsesOrder, err := ledger.Load(judgeFlags.responses, "prompt_id")
	if err != nil {
		return err
	}
	if len(responsesByID) == 0 {
		return fmt.Errorf("no responses found in %s", judgeFlags.responses)
	}

	// Judgments always flush via atomic rewrite so re-judging an id can
	// replace its line without duplicating it.
	store, err := ledger.Open(judgeFlags.output, "prompt_id", ledger.NewAtomicRewrite())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	collector := newCollector()
	engine := runner.NewEngine("judge", store, runner.Config{
		Force:    judgeFlags.force,
		MaxItems: judgeFlags.maxItems,
	}, log, collector)

	var processor *runner.JudgeProcessor
	if pending := engine.Pending(responsesOrder); len(pending) > 0 {
		client, err := buildClient(judgeFlags.provider, judgeFlags.judgeModel, log, collector)
		if err != nil {
			return err
		}
		processor = runner.NewJudgeProcessor(client)
	}

	summary, runErr := engine.Run(cmd.Context(), responsesOrder, func(ctx context.Context, id string) (any, error) {
		var response domain.OutputRecord
		if err := json.Unmarshal(responsesByID[id], &response); err != nil {
			return nil, fmt.Errorf("unreadable response record: %w", err)
		}
		return processor.Process(ctx, response)
	})

	fmt.Printf("Summary: %s\n", summary)
	return runErr
}
