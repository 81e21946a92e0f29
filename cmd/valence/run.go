package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-valence/internal/dataset"
	"github.com/ahrav/go-valence/internal/domain"
	"github.com/ahrav/go-valence/internal/ledger"
	"github.com/ahrav/go-valence/internal/runner"
)

var runFlags struct {
	provider    string
	model       string
	input       string
	output      string
	maxItems    int
	force       bool
	sleep       time.Duration
	temperature float64
	seed        int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Call the model for each prompt in the dataset",
	Long: `Run the model under evaluation over every prompt in the dataset,
persisting one response record per prompt id. Prompts already present in
the output ledger are skipped unless --force is given.`,
	RunE: runResponses,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.provider, "provider", "openai", "model provider (openai, anthropic, google)")
	f.StringVar(&runFlags.model, "model", "", "model name to call")
	f.StringVar(&runFlags.input, "input", "data/prompts.jsonl", "input prompts JSONL path")
	f.StringVar(&runFlags.output, "output", "outputs/responses.jsonl", "output responses JSONL path")
	f.IntVar(&runFlags.maxItems, "max-items", -1, "maximum uncached prompts to run (-1 for all)")
	f.BoolVar(&runFlags.force, "force", false, "ignore cache and re-run prompts")
	f.DurationVar(&runFlags.sleep, "sleep", 200*time.Millisecond, "delay between successful model calls")
	f.Float64Var(&runFlags.temperature, "temperature", 0, "sampling temperature")
	f.IntVar(&runFlags.seed, "seed", 0, "optional seed for compatible models")
	_ = runCmd.MarkFlagRequired("model")
}

func runResponses(cmd *cobra.Command, _ []string) error {
	if runFlags.sleep < 0 {
		return fmt.Errorf("--sleep must be >= 0")
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	items, err := dataset.Load(runFlags.input)
	if err != nil {
		return err
	}

	// Forced re-runs overwrite existing ids, which only the atomic rewrite
	// strategy supports; cached runs append new records one at a time.
	var strategy ledger.FlushStrategy = ledger.NewAppendOnly()
	if runFlags.force {
		strategy = ledger.NewAtomicRewrite()
	}
	store, err := ledger.Open(runFlags.output, "prompt_id", strategy)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	byID := make(map[string]domain.PromptItem, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		byID[item.ID] = item
		ids[i] = item.ID
	}

	collector := newCollector()
	engine := runner.NewEngine("response", store, runner.Config{
		Force:    runFlags.force,
		MaxItems: runFlags.maxItems,
		Sleep:    runFlags.sleep,
	}, log, collector)

	// The client (and its credential) is only needed when uncached work
	// exists; a fully cached run must succeed without any API key.
	var processor *runner.ResponseProcessor
	if pending := engine.Pending(ids); len(pending) > 0 {
		client, err := buildClient(runFlags.provider, runFlags.model, log, collector)
		if err != nil {
			return err
		}

		var seed *int
		if cmd.Flags().Changed("seed") {
			seed = &runFlags.seed
		}
		processor = runner.NewResponseProcessor(client, runFlags.temperature, seed)
	}

	summary, runErr := engine.Run(cmd.Context(), ids, func(ctx context.Context, id string) (any, error) {
		return processor.Process(ctx, byID[id])
	})

	fmt.Printf("Summary: %s\n", summary)
	return runErr
}
