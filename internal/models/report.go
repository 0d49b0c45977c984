package models

import (
	"time"

	"github.com/google/uuid"
)

// BreakoutReport is the per-symbol outcome of a breakout evaluation.
// Supporting numbers are nil when they could not be computed (insufficient
// data, empty current window, no prior-period bars).
type BreakoutReport struct {
	Symbol                 string   `json:"symbol"`
	IsBreakout             bool     `json:"isBreakout"`
	HistoricalHigh         *float64 `json:"historicalHigh,omitempty"`
	HistoricalHighBuffered *float64 `json:"historicalHighBuffered,omitempty"`
	PreviousHigh           *float64 `json:"previousHigh,omitempty"`
	CurrentPrice           *float64 `json:"currentPrice,omitempty"`
	CurrentPriceBuffered   *float64 `json:"currentPriceBuffered,omitempty"`
	Note                   string   `json:"note,omitempty"`
}

// ScanRun is one completed batch screening over a symbol list.
type ScanRun struct {
	ID        uuid.UUID        `json:"id"`
	StartedAt time.Time        `json:"startedAt"`
	YearsGap  int              `json:"yearsGap"`
	Buffer    float64          `json:"buffer"`
	WeeksBack int              `json:"weeksBack"`
	Results   []BreakoutReport `json:"results"`
}

// Breakouts returns the symbols flagged as breakouts, preserving result order.
func (r *ScanRun) Breakouts() []string {
	var out []string
	for _, res := range r.Results {
		if res.IsBreakout {
			out = append(out, res.Symbol)
		}
	}
	return out
}
