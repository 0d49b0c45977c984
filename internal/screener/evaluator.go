// Package screener computes multi-year breakout signals over cached bar
// history and applies them across symbol batches.
package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/nsescan/breakout-backend/internal/models"
	"go.uber.org/zap"
)

// BarReader is the slice of the store the evaluator needs. The evaluator
// never talks to the network; the refresh policy runs first.
type BarReader interface {
	QueryRange(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// Params tune one breakout evaluation.
type Params struct {
	YearsGap  int     `json:"yearsGap"`
	Buffer    float64 `json:"buffer"`
	WeeksBack int     `json:"weeksBack"`
}

// Normalize fills zero values with the conventional defaults.
func (p Params) Normalize() Params {
	if p.YearsGap <= 0 {
		p.YearsGap = 5
	}
	if p.Buffer <= 0 {
		p.Buffer = 0.05
	}
	if p.WeeksBack < 0 {
		p.WeeksBack = 0
	}
	return p
}

type Evaluator struct {
	store  BarReader
	now    func() time.Time
	logger *zap.Logger
}

func NewEvaluator(store BarReader, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{store: store, now: time.Now, logger: logger}
}

// WithClock fixes the evaluator's notion of "today". Used by retrospective
// analysis and tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	clone := *e
	clone.now = now
	return &clone
}

// Check evaluates the breakout predicate for one symbol.
//
// The recent window [today-365*yearsGap, windowEnd) must have peaked below
// the older all-time high after the buffer discount (no breakout happened
// already), while the current week's close inflated by the buffer must
// exceed that older high (the breakout is happening now).
//
// Fewer than two stored bars, an empty current window, or an undefined
// prior-period high all resolve to "not a breakout" without error. Errors
// are store faults only.
func (e *Evaluator) Check(ctx context.Context, symbol string, p Params) (models.BreakoutReport, error) {
	p = p.Normalize()
	report := models.BreakoutReport{Symbol: symbol}

	today := models.Day(e.now())
	daysSinceMonday := (int(e.now().UTC().Weekday()) + 6) % 7

	// Last trading day before the evaluation week, shifted back weeksBack weeks.
	windowEnd := today.AddDate(0, 0, -(daysSinceMonday + 1 + p.WeeksBack*7))
	gapStart := today.AddDate(0, 0, -365*p.YearsGap)
	currentStart := today.AddDate(0, 0, -(daysSinceMonday + p.WeeksBack*7))

	bars, err := e.store.QueryRange(ctx, symbol, time.Time{}, today.AddDate(0, 0, 1))
	if err != nil {
		return report, fmt.Errorf("query bars %s: %w", symbol, err)
	}

	if len(bars) < 2 {
		report.Note = "insufficient data"
		e.logger.Warn("not enough bars to evaluate",
			zap.String("symbol", symbol), zap.Int("bars", len(bars)))
		return report, nil
	}

	var historicalHigh, previousHigh *float64
	var currentPrice *float64
	for _, b := range bars {
		switch {
		case b.Date.Before(gapStart):
			previousHigh = maxOf(previousHigh, b.High)
		case b.Date.Before(windowEnd):
			historicalHigh = maxOf(historicalHigh, b.High)
		}
		if !b.Date.Before(currentStart) && !b.Date.After(today) {
			price := b.Close
			currentPrice = &price // bars are date-ascending; last wins
		}
	}

	report.HistoricalHigh = historicalHigh
	report.PreviousHigh = previousHigh
	if historicalHigh != nil {
		v := *historicalHigh * (1 - p.Buffer)
		report.HistoricalHighBuffered = &v
	}
	if currentPrice != nil {
		report.CurrentPrice = currentPrice
		v := *currentPrice * (1 + p.Buffer)
		report.CurrentPriceBuffered = &v
	}

	switch {
	case previousHigh == nil:
		report.Note = "no prior-period history"
	case historicalHigh == nil:
		report.Note = "no bars in recent window"
	case currentPrice == nil:
		report.Note = "no bars in current window"
	default:
		report.IsBreakout = *report.HistoricalHighBuffered < *previousHigh &&
			*report.CurrentPriceBuffered > *previousHigh
	}

	e.logger.Debug("evaluated",
		zap.String("symbol", symbol),
		zap.Bool("breakout", report.IsBreakout),
		zap.String("note", report.Note))
	return report, nil
}

func maxOf(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}
