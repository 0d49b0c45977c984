// Package cache decides when a symbol's stored history is usable and
// refreshes it from the data source when it is not.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nsescan/breakout-backend/internal/events"
	"github.com/nsescan/breakout-backend/internal/models"
	"go.uber.org/zap"
)

// wideLookbackYears extends the fetch window past the screening gap so the
// prior-period high has history to compare against.
const wideLookbackYears = 10

// DataSource fetches daily bars from the external provider.
type DataSource interface {
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// BarWriter merges fetched bars into the store.
type BarWriter interface {
	Upsert(ctx context.Context, symbol string, bars []models.Bar) (int64, error)
}

// EntryStore reads and stamps per-symbol cache metadata.
type EntryStore interface {
	Get(ctx context.Context, symbol string) (*models.CacheEntry, error)
	MarkRefreshed(ctx context.Context, symbol string, asOf time.Time) error
}

type Options struct {
	// StaleBy gates re-fetching: an entry younger than this is reused as-is.
	// Zero re-fetches on every Ensure, trading provider call volume for
	// guaranteed freshness.
	StaleBy      time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
}

type Refresher struct {
	src     DataSource
	bars    BarWriter
	entries EntryStore
	opts    Options
	logger  *zap.Logger
	bus     *events.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRefresher(src DataSource, bars BarWriter, entries EntryStore, opts Options, logger *zap.Logger, bus *events.Bus) *Refresher {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Refresher{
		src:     src,
		bars:    bars,
		entries: entries,
		opts:    opts,
		logger:  logger,
		bus:     bus,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Ensure makes the store usable for an evaluation of symbol. Adapter faults
// are absorbed: the cache is left untouched, the stamp does not advance, and
// evaluation proceeds against whatever is already stored. Store faults
// propagate and are fatal to this symbol's pipeline iteration only.
func (r *Refresher) Ensure(ctx context.Context, symbol string, yearsGap int) error {
	lock := r.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	now := r.opts.Now()

	entry, err := r.entries.Get(ctx, symbol)
	if err != nil {
		return fmt.Errorf("cache lookup %s: %w", symbol, err)
	}
	if entry != nil && r.opts.StaleBy > 0 && entry.Age(now) < r.opts.StaleBy {
		r.logger.Debug("cache fresh, skipping fetch",
			zap.String("symbol", symbol),
			zap.Time("last_updated", entry.LastUpdated))
		return nil
	}

	start := now.AddDate(-(yearsGap + wideLookbackYears), 0, 0)
	end := models.Day(now).AddDate(0, 0, 1)

	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	bars, err := r.src.GetDailyBars(fetchCtx, symbol, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.bus.Error(symbol, fmt.Sprintf("fetch failed, using cached data: %v", err))
		return nil
	}
	if len(bars) == 0 {
		r.bus.Warn(symbol, "provider returned no bars, cache stamp unchanged")
		return nil
	}

	inserted, err := r.bars.Upsert(ctx, symbol, bars)
	if err != nil {
		return fmt.Errorf("merge bars %s: %w", symbol, err)
	}
	if err := r.entries.MarkRefreshed(ctx, symbol, now); err != nil {
		return fmt.Errorf("mark refreshed %s: %w", symbol, err)
	}

	r.bus.Info(symbol, fmt.Sprintf("refreshed: %d fetched, %d new", len(bars), inserted))
	return nil
}

func (r *Refresher) lockFor(symbol string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		r.locks[symbol] = l
	}
	return l
}
