package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nsescan/breakout-backend/internal/api"
	"github.com/nsescan/breakout-backend/internal/cache"
	"github.com/nsescan/breakout-backend/internal/config"
	"github.com/nsescan/breakout-backend/internal/db"
	"github.com/nsescan/breakout-backend/internal/events"
	"github.com/nsescan/breakout-backend/internal/external"
	"github.com/nsescan/breakout-backend/internal/logging"
	"github.com/nsescan/breakout-backend/internal/notifications"
	"github.com/nsescan/breakout-backend/internal/repository"
	"github.com/nsescan/breakout-backend/internal/scheduler"
	"github.com/nsescan/breakout-backend/internal/screener"
)

const banner = `
╔══════════════════════════════════════╗
║    NSE Breakout Screener v0.1        ║
║                                      ║
╚══════════════════════════════════════╝
`

const apiPort = 3001

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}
	if err := db.Migrate(context.Background(), pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Migration failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	barRepo := repository.NewBarRepo(pool)
	cacheRepo := repository.NewCacheRepo(pool)
	scanRepo := repository.NewScanRepo(pool)

	// Core pipeline
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
	evaluator := screener.NewEvaluator(barRepo, logger)
	runner := screener.NewRunner(refresher, evaluator, screener.RunnerOptions{
		MaxConcurrency: cfg.MaxConcurrency,
	}, logger, bus)

	defaults := screener.Params{
		YearsGap:  cfg.DefaultYearsGap,
		Buffer:    cfg.DefaultBuffer,
		WeeksBack: cfg.DefaultWeeksBack,
	}

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName, logger)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(pool, runner, defaults, apiPort, cfg.APIKey, cfg.CORSAllowOrigin, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Watchlist scheduler
	var rescan *scheduler.Rescan
	watchlist, err := loadWatchlist(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[SCHEDULER] Watchlist load failed: %v\n", err)
		os.Exit(1)
	}
	if len(watchlist) > 0 {
		rescan = scheduler.NewRescan(runner, scanRepo, notify, scheduler.RescanConfig{
			Interval: cfg.RescanInterval,
			Symbols:  watchlist,
			Params:   defaults,
		}, logger)
		rescan.Start()
	} else {
		fmt.Println("[SCHEDULER] Skipped - no watchlist configured")
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if rescan != nil {
		rescan.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}

// loadWatchlist merges WATCHLIST_SYMBOLS with an optional CSV file.
func loadWatchlist(cfg *config.Config) ([]string, error) {
	symbols := append([]string(nil), cfg.WatchlistSymbols...)

	if cfg.WatchlistFile != "" {
		f, err := os.Open(cfg.WatchlistFile)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.WatchlistFile, err)
		}
		defer f.Close()

		fromFile, err := screener.ParseCSV(f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfg.WatchlistFile, err)
		}
		symbols = append(symbols, fromFile...)
	}

	// Dedup while preserving order
	seen := make(map[string]bool, len(symbols))
	var out []string
	for _, s := range symbols {
		key := strings.ToUpper(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out, nil
}
