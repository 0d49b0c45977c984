package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/nsescan/breakout-backend/internal/repository"
)

type clearCacheCmd struct{}

func (*clearCacheCmd) Name() string { return "clear-cache" }
func (*clearCacheCmd) Synopsis() string {
	return "delete all cached bars and the cache entry for a symbol"
}
func (*clearCacheCmd) Usage() string            { return "screener clear-cache SYMBOL\n" }
func (*clearCacheCmd) SetFlags(f *flag.FlagSet) {}

func (c *clearCacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one symbol expected")
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(0)

	_, pool, err := openPool(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	cacheRepo := repository.NewCacheRepo(pool)

	entry, err := cacheRepo.Get(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup: %v\n", err)
		return subcommands.ExitFailure
	}
	if entry == nil {
		fmt.Printf("No cache entry found for %s.\n", symbol)
		return subcommands.ExitSuccess
	}

	fmt.Printf("Found cache entry for %s (last updated %s)\n",
		symbol, entry.LastUpdated.Format("2006-01-02"))

	if err := cacheRepo.Clear(ctx, symbol); err != nil {
		fmt.Fprintf(os.Stderr, "clear: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully deleted cache and historical data for %s.\n", symbol)
	return subcommands.ExitSuccess
}

type verifyCmd struct{}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "show stored bar count and latest closes for a symbol" }
func (*verifyCmd) Usage() string    { return "screener verify SYMBOL\n" }

func (*verifyCmd) SetFlags(f *flag.FlagSet) {}

func (c *verifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one symbol expected")
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(0)

	_, pool, err := openPool(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	barRepo := repository.NewBarRepo(pool)

	count, err := barRepo.Count(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Row count for %s: %d\n", symbol, count)

	if count == 0 {
		fmt.Println("No data found.")
		return subcommands.ExitSuccess
	}

	latest, err := barRepo.Latest(ctx, symbol, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latest: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("Latest 5 rows:")
	for _, b := range latest {
		fmt.Printf("  %s  close=%.2f\n", b.Date.Format("2006-01-02"), b.Close)
	}
	return subcommands.ExitSuccess
}
