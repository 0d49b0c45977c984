package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsescan/breakout-backend/internal/models"
)

type BarRepo struct {
	pool *pgxpool.Pool
}

func NewBarRepo(pool *pgxpool.Pool) *BarRepo {
	return &BarRepo{pool: pool}
}

// Upsert merges bars keyed by (symbol, date). Bars already present are left
// untouched. Returns the number of rows actually inserted.
func (r *BarRepo) Upsert(ctx context.Context, symbol string, bars []models.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO bars (symbol, date, open, high, low, close, adj_close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (symbol, date) DO NOTHING`,
			symbol, models.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range bars {
		ct, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += ct.RowsAffected()
	}
	return inserted, nil
}

// QueryRange returns the symbol's bars with start <= date < end, ascending.
func (r *BarRepo) QueryRange(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, date, open, high, low, close, adj_close, volume
		 FROM bars
		 WHERE symbol = $1 AND date >= $2 AND date < $3
		 ORDER BY date ASC`,
		symbol, models.Day(start), models.Day(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBars(rows)
}

func (r *BarRepo) Count(ctx context.Context, symbol string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bars WHERE symbol = $1`, symbol,
	).Scan(&n)
	return n, err
}

// Latest returns up to n most recent bars for the symbol, newest first.
func (r *BarRepo) Latest(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, date, open, high, low, close, adj_close, volume
		 FROM bars WHERE symbol = $1 ORDER BY date DESC LIMIT $2`,
		symbol, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBars(rows)
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBar(row scannable, b *models.Bar) error {
	var d time.Time
	if err := row.Scan(&b.Symbol, &d, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
		return err
	}
	b.Date = models.Day(d)
	return nil
}

func collectBars(rows rowsIter) ([]models.Bar, error) {
	var out []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := scanBar(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
