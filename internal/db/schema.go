package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		symbol     TEXT             NOT NULL,
		date       DATE             NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		adj_close  DOUBLE PRECISION NOT NULL,
		volume     BIGINT           NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, date)
	)`,
	`CREATE TABLE IF NOT EXISTS cache_info (
		symbol       TEXT        PRIMARY KEY,
		last_updated DATE        NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS scan_runs (
		id         UUID             PRIMARY KEY,
		started_at TIMESTAMPTZ      NOT NULL,
		years_gap  INT              NOT NULL,
		buffer     DOUBLE PRECISION NOT NULL,
		weeks_back INT              NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scan_results (
		run_id                   UUID    NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
		position                 INT     NOT NULL,
		symbol                   TEXT    NOT NULL,
		is_breakout              BOOLEAN NOT NULL,
		historical_high          DOUBLE PRECISION,
		historical_high_buffered DOUBLE PRECISION,
		previous_high            DOUBLE PRECISION,
		current_price            DOUBLE PRECISION,
		current_price_buffered   DOUBLE PRECISION,
		note                     TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	)`,
}

// Migrate creates the screener tables when they do not exist yet.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
