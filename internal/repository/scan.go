package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsescan/breakout-backend/internal/models"
)

type ScanRepo struct {
	pool *pgxpool.Pool
}

func NewScanRepo(pool *pgxpool.Pool) *ScanRepo {
	return &ScanRepo{pool: pool}
}

// Record persists a completed scan run with its per-symbol results.
func (r *ScanRepo) Record(ctx context.Context, run *models.ScanRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scan_runs (id, started_at, years_gap, buffer, weeks_back)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.StartedAt, run.YearsGap, run.Buffer, run.WeeksBack,
	); err != nil {
		return err
	}

	for i, res := range run.Results {
		if _, err := tx.Exec(ctx,
			`INSERT INTO scan_results
			 (run_id, position, symbol, is_breakout, historical_high,
			  historical_high_buffered, previous_high, current_price,
			  current_price_buffered, note)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			run.ID, i, res.Symbol, res.IsBreakout, res.HistoricalHigh,
			res.HistoricalHighBuffered, res.PreviousHigh, res.CurrentPrice,
			res.CurrentPriceBuffered, res.Note,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Latest returns the most recent scan run with results, or nil when no run
// has been recorded yet.
func (r *ScanRepo) Latest(ctx context.Context) (*models.ScanRun, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, started_at, years_gap, buffer, weeks_back
		 FROM scan_runs ORDER BY started_at DESC LIMIT 1`,
	)
	var run models.ScanRun
	err := row.Scan(&run.ID, &run.StartedAt, &run.YearsGap, &run.Buffer, &run.WeeksBack)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, is_breakout, historical_high, historical_high_buffered,
		        previous_high, current_price, current_price_buffered, note
		 FROM scan_results WHERE run_id = $1 ORDER BY position ASC`,
		run.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var res models.BreakoutReport
		if err := rows.Scan(
			&res.Symbol, &res.IsBreakout, &res.HistoricalHigh,
			&res.HistoricalHighBuffered, &res.PreviousHigh,
			&res.CurrentPrice, &res.CurrentPriceBuffered, &res.Note,
		); err != nil {
			return nil, err
		}
		run.Results = append(run.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// NewRunID allocates an identifier for a scan run.
func NewRunID() uuid.UUID {
	return uuid.New()
}
