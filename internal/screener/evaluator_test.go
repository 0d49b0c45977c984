package screener

import (
	"context"
	"testing"
	"time"

	"github.com/nsescan/breakout-backend/internal/models"
)

// fakeStore serves bars from memory, honoring the [start, end) range.
type fakeStore struct {
	bars map[string][]models.Bar
	err  error
}

func (f *fakeStore) QueryRange(_ context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Bar
	for _, b := range f.bars[symbol] {
		if !b.Date.Before(start) && b.Date.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Wednesday 2026-08-26: daysSinceMonday=2, windowEnd=Sun 2026-08-23,
// currentWindow=[Mon 2026-08-24, Wed 2026-08-26].
var wednesday = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func bar(symbol, date string, high, close float64) models.Bar {
	return models.Bar{
		Symbol: symbol, Date: day(date),
		Open: close, High: high, Low: close, Close: close, AdjClose: close,
	}
}

// breakoutFixture builds the canonical scenario: prior-period high 100,
// recent-window high 95, current close as given.
func breakoutFixture(symbol string, currentClose float64) []models.Bar {
	return []models.Bar{
		bar(symbol, "2015-03-10", 100, 98), // prior period (older than 5*365d)
		bar(symbol, "2016-01-05", 80, 79),
		bar(symbol, "2024-06-12", 95, 94), // recent window
		bar(symbol, "2025-11-03", 90, 89),
		bar(symbol, "2026-08-25", currentClose, currentClose), // current week (Tue)
	}
}

func TestCheck_BreakoutTrue(t *testing.T) {
	store := &fakeStore{bars: map[string][]models.Bar{"X": breakoutFixture("X", 102)}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if !rep.IsBreakout {
		t.Fatal("expected breakout")
	}
	if rep.HistoricalHigh == nil || *rep.HistoricalHigh != 95 {
		t.Fatalf("historical high: got %v, want 95", rep.HistoricalHigh)
	}
	if rep.HistoricalHighBuffered == nil || !almostEqual(*rep.HistoricalHighBuffered, 90.25) {
		t.Fatalf("historical high buffered: got %v, want 90.25", rep.HistoricalHighBuffered)
	}
	if rep.PreviousHigh == nil || *rep.PreviousHigh != 100 {
		t.Fatalf("previous high: got %v, want 100", rep.PreviousHigh)
	}
	if rep.CurrentPrice == nil || *rep.CurrentPrice != 102 {
		t.Fatalf("current price: got %v, want 102", rep.CurrentPrice)
	}
	if rep.CurrentPriceBuffered == nil || !almostEqual(*rep.CurrentPriceBuffered, 107.1) {
		t.Fatalf("current price buffered: got %v, want 107.1", rep.CurrentPriceBuffered)
	}
}

func TestCheck_BreakoutFalseWhenCurrentTooLow(t *testing.T) {
	// 95*1.05 = 99.75 < 100: not confirmed
	store := &fakeStore{bars: map[string][]models.Bar{"X": breakoutFixture("X", 95)}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.IsBreakout {
		t.Fatal("expected no breakout")
	}
}

func TestCheck_AlreadyBrokenOutInRecentWindow(t *testing.T) {
	// Recent high 110 discounted by the buffer still tops the prior high,
	// so the move is old news.
	bars := []models.Bar{
		bar("X", "2015-03-10", 100, 98),
		bar("X", "2024-06-12", 110, 109),
		bar("X", "2026-08-25", 115, 115),
	}
	store := &fakeStore{bars: map[string][]models.Bar{"X": bars}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.IsBreakout {
		t.Fatal("expected no breakout when the recent window already peaked above the prior high")
	}
}

func TestCheck_InsufficientData(t *testing.T) {
	for _, bars := range [][]models.Bar{
		nil,
		{bar("Y", "2026-08-25", 50, 50)},
	} {
		store := &fakeStore{bars: map[string][]models.Bar{"Y": bars}}
		e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

		rep, err := e.Check(context.Background(), "Y", Params{YearsGap: 5, Buffer: 0.05})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if rep.IsBreakout {
			t.Fatal("expected no breakout with insufficient data")
		}
		if rep.Note != "insufficient data" {
			t.Fatalf("note: got %q", rep.Note)
		}
		if rep.HistoricalHigh != nil || rep.PreviousHigh != nil || rep.CurrentPrice != nil {
			t.Fatal("supporting numbers should be nil with insufficient data")
		}
	}
}

func TestCheck_NoPriorPeriodHistory(t *testing.T) {
	bars := []models.Bar{
		bar("Z", "2024-06-12", 95, 94),
		bar("Z", "2026-08-25", 102, 102),
	}
	store := &fakeStore{bars: map[string][]models.Bar{"Z": bars}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "Z", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.IsBreakout {
		t.Fatal("expected no breakout without prior-period history")
	}
	if rep.PreviousHigh != nil {
		t.Fatalf("previous high should be nil, got %v", rep.PreviousHigh)
	}
}

func TestCheck_EmptyCurrentWindow(t *testing.T) {
	// Plenty of history, but nothing since the evaluation week started.
	bars := []models.Bar{
		bar("W", "2015-03-10", 100, 98),
		bar("W", "2024-06-12", 95, 94),
		bar("W", "2026-08-20", 96, 96), // Thursday of the prior week
	}
	store := &fakeStore{bars: map[string][]models.Bar{"W": bars}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "W", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.IsBreakout {
		t.Fatal("expected no breakout with an empty current window")
	}
	if rep.CurrentPrice != nil {
		t.Fatalf("current price should be nil, got %v", rep.CurrentPrice)
	}
}

func TestCheck_Deterministic(t *testing.T) {
	store := &fakeStore{bars: map[string][]models.Bar{"X": breakoutFixture("X", 102)}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	first, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for i := 0; i < 5; i++ {
		rep, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if rep.IsBreakout != first.IsBreakout || *rep.CurrentPriceBuffered != *first.CurrentPriceBuffered {
			t.Fatalf("run %d differed from first run", i)
		}
	}
}

func TestCheck_WeeksBackShiftsWindows(t *testing.T) {
	// The breakout bar landed last week (Wed 2026-08-19). At weeksBack=0
	// that bar sits inside the recent window and this week has no bars to
	// evaluate. At weeksBack=1 the windows shift back and the same bar
	// becomes the evaluation point.
	bars := []models.Bar{
		bar("X", "2015-03-10", 100, 98),
		bar("X", "2024-06-12", 95, 94),
		bar("X", "2026-08-19", 120, 102),
	}
	store := &fakeStore{bars: map[string][]models.Bar{"X": bars}}
	e := NewEvaluator(store, nil).WithClock(fixedClock(wednesday))

	rep, err := e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.IsBreakout {
		t.Fatal("expected no breakout at weeksBack=0")
	}

	rep, err = e.Check(context.Background(), "X", Params{YearsGap: 5, Buffer: 0.05, WeeksBack: 1})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rep.IsBreakout {
		t.Fatal("expected breakout at weeksBack=1")
	}
	if rep.CurrentPrice == nil || *rep.CurrentPrice != 102 {
		t.Fatalf("current price: got %v, want 102", rep.CurrentPrice)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
