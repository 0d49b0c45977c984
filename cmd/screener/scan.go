package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/nsescan/breakout-backend/internal/cache"
	"github.com/nsescan/breakout-backend/internal/events"
	"github.com/nsescan/breakout-backend/internal/external"
	"github.com/nsescan/breakout-backend/internal/logging"
	"github.com/nsescan/breakout-backend/internal/models"
	"github.com/nsescan/breakout-backend/internal/repository"
	"github.com/nsescan/breakout-backend/internal/screener"
)

type scanCmd struct {
	csvPath string
	symbols string
	years   int
	buffer  float64
	weeks   int
	out     string
}

func (*scanCmd) Name() string { return "scan" }
func (*scanCmd) Synopsis() string {
	return "screen a symbol list for multi-year breakouts"
}
func (*scanCmd) Usage() string {
	return "screener scan [-csv file | -symbols A,B,C] [-years N] [-buffer F] [-weeks N] [-out report.csv]\n"
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csvPath, "csv", "", "CSV file with a symbol column")
	f.StringVar(&c.symbols, "symbols", "", "comma-separated symbols")
	f.IntVar(&c.years, "years", 0, "years-gap (default from config)")
	f.Float64Var(&c.buffer, "buffer", 0, "buffer fraction (default from config)")
	f.IntVar(&c.weeks, "weeks", 0, "weeks-back offset")
	f.StringVar(&c.out, "out", "", "write the full report to this CSV file")
}

func (c *scanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols, err := c.loadSymbols()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	cfg, pool, err := openPool(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	barRepo := repository.NewBarRepo(pool)
	cacheRepo := repository.NewCacheRepo(pool)
	bus := events.NewBus(logger)

	yahoo := external.NewYahooClient(cfg.YahooBaseURL, external.YahooOptions{
		VenueSuffix: cfg.VenueSuffix,
		Timeout:     cfg.FetchTimeout,
		MaxAttempts: cfg.FetchAttempts,
	}, logger)
	refresher := cache.NewRefresher(yahoo, barRepo, cacheRepo, cache.Options{
		StaleBy:      cfg.RefreshStaleBy,
		FetchTimeout: cfg.FetchTimeout,
	}, logger, bus)
	runner := screener.NewRunner(refresher, screener.NewEvaluator(barRepo, logger),
		screener.RunnerOptions{MaxConcurrency: cfg.MaxConcurrency}, logger, bus)

	params := screener.Params{YearsGap: c.years, Buffer: c.buffer, WeeksBack: c.weeks}
	if params.YearsGap == 0 {
		params.YearsGap = cfg.DefaultYearsGap
	}
	if params.Buffer == 0 {
		params.Buffer = cfg.DefaultBuffer
	}
	if params.WeeksBack == 0 {
		params.WeeksBack = cfg.DefaultWeeksBack
	}

	fmt.Printf("Scanning %d symbols (years=%d buffer=%.2f weeks=%d)...\n",
		len(symbols), params.YearsGap, params.Buffer, params.WeeksBack)

	reports := runner.Run(ctx, symbols, params)

	breakouts := screener.BreakoutSymbols(reports)
	fmt.Printf("\n%d of %d symbols are giving a multi-year breakout\n", len(breakouts), len(symbols))
	for _, rep := range reports {
		if rep.IsBreakout {
			fmt.Printf("  %-12s prev high %.2f, current %.2f\n",
				rep.Symbol, deref(rep.PreviousHigh), deref(rep.CurrentPrice))
		}
	}

	if c.out != "" {
		if err := writeReportCSV(c.out, reports); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Report written to %s\n", c.out)
	}
	return subcommands.ExitSuccess
}

func (c *scanCmd) loadSymbols() ([]string, error) {
	if c.csvPath != "" {
		f, err := os.Open(c.csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return screener.ParseCSV(f)
	}
	if c.symbols != "" {
		return screener.ParseManual(c.symbols), nil
	}
	return nil, fmt.Errorf("either -csv or -symbols is required")
}

func writeReportCSV(path string, reports []models.BreakoutReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"symbol", "is_breakout", "historical_high", "historical_high_buffered",
		"previous_high", "current_price", "current_price_buffered", "note",
	}); err != nil {
		return err
	}
	for _, rep := range reports {
		if err := w.Write([]string{
			rep.Symbol,
			strconv.FormatBool(rep.IsBreakout),
			formatPtr(rep.HistoricalHigh),
			formatPtr(rep.HistoricalHighBuffered),
			formatPtr(rep.PreviousHigh),
			formatPtr(rep.CurrentPrice),
			formatPtr(rep.CurrentPriceBuffered),
			rep.Note,
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
