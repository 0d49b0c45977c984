package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	APIKey          string
	CORSAllowOrigin string
	WebhookURL      string
	BotName         string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Data source
	YahooBaseURL   string
	VenueSuffix    string
	FetchTimeout   time.Duration
	FetchAttempts  int
	MaxConcurrency int

	// Cache refresh policy. Zero means "always re-fetch"; a positive
	// duration skips the provider round trip while the cache entry is
	// younger than this.
	RefreshStaleBy time.Duration

	// Screening defaults
	DefaultYearsGap  int
	DefaultBuffer    float64
	DefaultWeeksBack int

	// Watchlist scheduler
	WatchlistSymbols []string
	WatchlistFile    string
	RescanInterval   time.Duration

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "BreakoutScreener"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "nse_breakout"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Data source
		YahooBaseURL:   envStr("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		VenueSuffix:    envStr("VENUE_SUFFIX", ".NS"),
		FetchTimeout:   time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchAttempts:  envInt("FETCH_ATTEMPTS", 3),
		MaxConcurrency: envInt("MAX_CONCURRENT_FETCHES", 4),

		// Refresh policy
		RefreshStaleBy: time.Duration(envInt("REFRESH_STALE_BY_HOURS", 0)) * time.Hour,

		// Screening defaults
		DefaultYearsGap:  envInt("DEFAULT_YEARS_GAP", 5),
		DefaultBuffer:    envFloat("DEFAULT_BUFFER", 0.05),
		DefaultWeeksBack: envInt("DEFAULT_WEEKS_BACK", 0),

		// Watchlist
		WatchlistSymbols: envList("WATCHLIST_SYMBOLS"),
		WatchlistFile:    envStr("WATCHLIST_FILE", ""),
		RescanInterval:   time.Duration(envInt("RESCAN_INTERVAL_MINUTES", 60)) * time.Minute,

		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.DefaultYearsGap < 1 || c.DefaultYearsGap > 10 {
		errs = append(errs, "DEFAULT_YEARS_GAP must be between 1 and 10")
	}
	if c.DefaultBuffer < 0 || c.DefaultBuffer > 0.5 {
		errs = append(errs, "DEFAULT_BUFFER must be between 0 and 0.5")
	}
	if c.DefaultWeeksBack < 0 {
		errs = append(errs, "DEFAULT_WEEKS_BACK must not be negative")
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, "MAX_CONCURRENT_FETCHES must be at least 1")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}
	if c.RefreshStaleBy == 0 {
		fmt.Println("[WARN] REFRESH_STALE_BY_HOURS is 0 — every evaluation re-fetches from the provider")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== NSE Breakout Screener Configuration ===")
	fmt.Printf("Database: %s:%d/%s\n", c.DBHost, c.DBPort, c.DBName)
	fmt.Println("--------------------------------------")
	fmt.Println("Data Source:")
	fmt.Printf("  Provider: %s\n", c.YahooBaseURL)
	fmt.Printf("  Venue Suffix: %s\n", c.VenueSuffix)
	fmt.Printf("  Fetch Timeout: %s\n", c.FetchTimeout)
	fmt.Printf("  Max Concurrent Fetches: %d\n", c.MaxConcurrency)
	fmt.Println("--------------------------------------")
	fmt.Println("Cache Refresh Policy:")
	if c.RefreshStaleBy == 0 {
		fmt.Println("  Mode: always re-fetch")
	} else {
		fmt.Printf("  Mode: re-fetch when older than %s\n", c.RefreshStaleBy)
	}
	fmt.Println("--------------------------------------")
	fmt.Println("Screening Defaults:")
	fmt.Printf("  Years Gap: %d\n", c.DefaultYearsGap)
	fmt.Printf("  Buffer: %.2f\n", c.DefaultBuffer)
	fmt.Printf("  Weeks Back: %d\n", c.DefaultWeeksBack)
	fmt.Println("--------------------------------------")
	fmt.Println("Watchlist Scheduler:")
	if len(c.WatchlistSymbols) > 0 || c.WatchlistFile != "" {
		fmt.Printf("  Symbols: %d configured", len(c.WatchlistSymbols))
		if c.WatchlistFile != "" {
			fmt.Printf(" (+file %s)", c.WatchlistFile)
		}
		fmt.Println()
		fmt.Printf("  Rescan Interval: %s\n", c.RescanInterval)
	} else {
		fmt.Println("  Disabled (no WATCHLIST_SYMBOLS or WATCHLIST_FILE)")
	}
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
