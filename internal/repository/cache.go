package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsescan/breakout-backend/internal/models"
)

type CacheRepo struct {
	pool *pgxpool.Pool
}

func NewCacheRepo(pool *pgxpool.Pool) *CacheRepo {
	return &CacheRepo{pool: pool}
}

// Get returns the cache entry for symbol, or nil when the cache is cold.
func (r *CacheRepo) Get(ctx context.Context, symbol string) (*models.CacheEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT symbol, last_updated, updated_at FROM cache_info WHERE symbol = $1`,
		symbol,
	)
	var e models.CacheEntry
	var lu time.Time
	err := row.Scan(&e.Symbol, &lu, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.LastUpdated = models.Day(lu)
	return &e, nil
}

// MarkRefreshed upserts the cache entry. The stamp never moves backwards;
// concurrent refreshes settle on the newest as-of date.
func (r *CacheRepo) MarkRefreshed(ctx context.Context, symbol string, asOf time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cache_info (symbol, last_updated, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (symbol) DO UPDATE
		 SET last_updated = GREATEST(cache_info.last_updated, EXCLUDED.last_updated),
		     updated_at   = NOW()`,
		symbol, models.Day(asOf),
	)
	return err
}

// Clear removes the cache entry and every stored bar for the symbol in one
// transaction. Maintenance path only; the refresh/evaluate pipeline never
// deletes bars.
func (r *CacheRepo) Clear(ctx context.Context, symbol string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bars WHERE symbol = $1`, symbol); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cache_info WHERE symbol = $1`, symbol); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
