package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/nsescan/breakout-backend/internal/events"
	"github.com/nsescan/breakout-backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresher brings a symbol's cached history up to date before evaluation.
type Refresher interface {
	Ensure(ctx context.Context, symbol string, yearsGap int) error
}

type RunnerOptions struct {
	MaxConcurrency int
	// SymbolTimeout bounds one symbol's refresh+evaluate pipeline.
	SymbolTimeout time.Duration
}

// Runner screens a batch of symbols. Symbols are independent: they run on a
// bounded worker pool and a fault in one never aborts the rest.
type Runner struct {
	refresher Refresher
	eval      *Evaluator
	bus       *events.Bus
	logger    *zap.Logger
	opts      RunnerOptions
}

func NewRunner(refresher Refresher, eval *Evaluator, opts RunnerOptions, logger *zap.Logger, bus *events.Bus) *Runner {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 4
	}
	if opts.SymbolTimeout <= 0 {
		opts.SymbolTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Runner{refresher: refresher, eval: eval, bus: bus, logger: logger, opts: opts}
}

// Run evaluates every symbol and returns one report per input symbol, in
// input order.
func (r *Runner) Run(ctx context.Context, symbols []string, p Params) []models.BreakoutReport {
	p = p.Normalize()
	results := make([]models.BreakoutReport, len(symbols))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			results[i] = r.screenOne(ctx, symbol, p)
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Runner) screenOne(ctx context.Context, symbol string, p Params) models.BreakoutReport {
	r.bus.Info(symbol, "processing")

	symCtx, cancel := context.WithTimeout(ctx, r.opts.SymbolTimeout)
	defer cancel()

	// Refresh strictly precedes evaluation. Adapter faults are absorbed
	// inside Ensure; an error here is a store fault for this symbol.
	if err := r.refresher.Ensure(symCtx, symbol, p.YearsGap); err != nil {
		r.bus.Error(symbol, fmt.Sprintf("refresh failed: %v", err))
		return models.BreakoutReport{Symbol: symbol, Note: fmt.Sprintf("refresh failed: %v", err)}
	}

	report, err := r.eval.Check(symCtx, symbol, p)
	if err != nil {
		r.bus.Error(symbol, fmt.Sprintf("evaluation failed: %v", err))
		return models.BreakoutReport{Symbol: symbol, Note: fmt.Sprintf("evaluation failed: %v", err)}
	}

	if report.IsBreakout {
		r.bus.Info(symbol, "multi-year breakout")
	}
	return report
}

// BreakoutSymbols filters reports down to the symbols that qualified,
// preserving input order.
func BreakoutSymbols(reports []models.BreakoutReport) []string {
	var out []string
	for _, rep := range reports {
		if rep.IsBreakout {
			out = append(out, rep.Symbol)
		}
	}
	return out
}
