package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-valence/infrastructure/llm"
	"github.com/ahrav/go-valence/infrastructure/metrics"
	"github.com/ahrav/go-valence/internal/dataset"
	"github.com/ahrav/go-valence/internal/ports"
	"github.com/ahrav/go-valence/internal/runner"
)

// Process exit codes. Partial per-item failures still exit zero; partial
// progress is a success at the process level.
const (
	exitOK          = 0
	exitError       = 1
	exitBadDataset  = 2
	exitInterrupted = 130
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "valence",
	Short:         "Safety eval pipeline: run, judge, and score model responses",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, judgeCmd, metricsCmd, valuesCmd)
}

// Execute runs the CLI and maps the failure taxonomy onto exit codes.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var datasetErr *dataset.ValidationError
	switch {
	case errors.As(err, &datasetErr):
		return exitBadDataset
	case errors.Is(err, runner.ErrInterrupted):
		return exitInterrupted
	default:
		return exitError
	}
}

// newLogger builds the structured logger shared by a command invocation.
// Logs go to stderr so report output on stdout stays machine-readable.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// providerEnvKeys maps each provider to its credential variable.
var providerEnvKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GEMINI_API_KEY",
}

// resolveAPIKey looks up the provider's credential. Checked once, before
// any item is processed, and only when uncached work actually exists.
func resolveAPIKey(provider string) (string, error) {
	envKey, ok := providerEnvKeys[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q (have: openai, anthropic, google)", provider)
	}
	key := os.Getenv(envKey)
	if key == "" {
		return "", fmt.Errorf("%s is not set", envKey)
	}
	return key, nil
}

// buildClient constructs the middleware-wrapped provider client. Tracing
// is outermost so one span covers the whole retried call; metrics sit
// inside retry so every attempt is counted.
func buildClient(provider, model string, log *zap.Logger, collector ports.MetricsCollector) (*llm.Client, error) {
	apiKey, err := resolveAPIKey(provider)
	if err != nil {
		return nil, err
	}

	return llm.NewClient(provider, llm.ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		Timeout: 120 * time.Second,
		Middleware: []llm.Middleware{
			llm.TracingMiddleware("valence"),
			llm.RetryMiddleware(nil, log),
			llm.MetricsMiddleware(collector),
		},
	})
}

func newCollector() ports.MetricsCollector {
	return metrics.NewPrometheusCollector(nil)
}
