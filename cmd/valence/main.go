// Command valence drives the safety evaluation pipeline: it runs a model
// over a prompt dataset, judges the responses, and reduces the persisted
// records into safety and value-orientation metrics.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Credentials may live in a local .env; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(Execute(ctx))
}
