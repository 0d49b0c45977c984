// Command screener is the admin/one-shot CLI for the breakout screener:
// batch scans, cache maintenance and store verification.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsescan/breakout-backend/internal/config"
	"github.com/nsescan/breakout-backend/internal/db"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&scanCmd{}, "screening")
	subcommands.Register(&clearCacheCmd{}, "maintenance")
	subcommands.Register(&verifyCmd{}, "maintenance")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// openPool loads config and opens a database pool with the schema in place.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, pool, nil
}
