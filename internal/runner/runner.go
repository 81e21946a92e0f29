// Package runner implements the resumable execution engine shared by the
// response and judgment stages. Items are processed one at a time in
// dataset order; each completed item is flushed durably before the next
// one starts, so an interrupted run resumes from the uncached tail.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-valence/internal/ledger"
	"github.com/ahrav/go-valence/internal/ports"
)

// ErrInterrupted reports a user-requested cancellation. The in-flight item
// is abandoned without a ledger write; all previously committed records
// remain durable.
var ErrInterrupted = errors.New("run interrupted")

// Summary is the per-run accounting reported when a stage finishes,
// including when it finishes early on interruption.
type Summary struct {
	Total         int
	Completed     int
	SkippedCached int
	Failed        int
}

// String renders the summary in the one-line form the CLI prints.
func (s Summary) String() string {
	return fmt.Sprintf("total=%d completed=%d skipped_cached=%d failed=%d",
		s.Total, s.Completed, s.SkippedCached, s.Failed)
}

// Config controls engine behavior for one invocation.
type Config struct {
	// Force reprocesses ids already present in the ledger instead of
	// skipping them as cached.
	Force bool

	// MaxItems bounds how many uncached items this invocation processes.
	// Negative means unlimited; zero processes nothing.
	MaxItems int

	// Sleep is the courtesy delay between item completions. Zero disables
	// the inter-item limiter.
	Sleep time.Duration
}

// ProcessFunc produces the record for one pending id. The returned value
// is handed directly to the ledger; any error marks the item failed
// without aborting the batch.
type ProcessFunc func(ctx context.Context, id string) (any, error)

// Engine drives a ProcessFunc over the pending ids of one stage,
// consulting the ledger for cache hits and flushing each completed item
// before moving on.
type Engine struct {
	stage   string
	store   *ledger.Ledger
	cfg     Config
	log     *zap.Logger
	metrics ports.MetricsCollector
	limiter *rate.Limiter
}

// NewEngine creates an engine over the given ledger. A nil logger or
// collector is replaced with a no-op implementation.
func NewEngine(stage string, store *ledger.Ledger, cfg Config, log *zap.Logger, metrics ports.MetricsCollector) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.Sleep > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Sleep), 1)
	}

	return &Engine{
		stage:   stage,
		store:   store,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		limiter: limiter,
	}
}

// Pending returns the ids this invocation will actually process: cached
// ids are skipped unless forced, and the result is capped at MaxItems.
func (e *Engine) Pending(ids []string) []string {
	var pending []string
	for _, id := range ids {
		if !e.cfg.Force && e.store.Has(id) {
			continue
		}
		pending = append(pending, id)
	}
	if e.cfg.MaxItems >= 0 && len(pending) > e.cfg.MaxItems {
		pending = pending[:e.cfg.MaxItems]
	}
	return pending
}

// Run processes the pending subset of ids through process, committing each
// result to the ledger before the next item starts. Per-item failures are
// counted and logged but never abort the batch; cancellation and ledger
// write failures do.
func (e *Engine) Run(ctx context.Context, ids []string, process ProcessFunc) (Summary, error) {
	summary := Summary{Total: len(ids)}

	pending := e.Pending(ids)
	summary.SkippedCached = e.cachedCount(ids)

	e.log.Info("stage starting",
		zap.String("stage", e.stage),
		zap.Int("total", summary.Total),
		zap.Int("pending", len(pending)),
		zap.Int("skipped_cached", summary.SkippedCached),
		zap.Bool("force", e.cfg.Force))

	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}

		record, err := process(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				e.log.Warn("stage interrupted",
					zap.String("stage", e.stage),
					zap.String("id", id))
				return summary, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
			}

			summary.Failed++
			e.countItem("failed")
			e.log.Warn("item failed",
				zap.String("stage", e.stage),
				zap.String("id", id),
				zap.Int("position", i+1),
				zap.Int("pending", len(pending)),
				zap.Error(err))
			continue
		}

		// A ledger write failure means durability is gone; nothing later
		// in the batch can be trusted to persist, so this is fatal.
		if err := e.store.Upsert(id, record); err != nil {
			return summary, err
		}

		summary.Completed++
		e.countItem("completed")
		e.log.Info("item completed",
			zap.String("stage", e.stage),
			zap.String("id", id),
			zap.Int("position", i+1),
			zap.Int("pending", len(pending)))

		if e.limiter != nil && i < len(pending)-1 {
			if err := e.limiter.Wait(ctx); err != nil {
				return summary, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
			}
		}
	}

	e.log.Info("stage finished",
		zap.String("stage", e.stage),
		zap.Int("total", summary.Total),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped_cached", summary.SkippedCached),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (e *Engine) cachedCount(ids []string) int {
	if e.cfg.Force {
		return 0
	}
	cached := 0
	for _, id := range ids {
		if e.store.Has(id) {
			cached++
		}
	}
	return cached
}

func (e *Engine) countItem(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordCounter("items_total", 1, map[string]string{
		"stage":   e.stage,
		"outcome": outcome,
	})
}
