package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsescan/breakout-backend/internal/repository"
	"github.com/nsescan/breakout-backend/internal/screener"
	"go.uber.org/zap"
)

const maxScanSymbols = 500

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Server struct {
	pool       *pgxpool.Pool
	barRepo    *repository.BarRepo
	cacheRepo  *repository.CacheRepo
	scanRepo   *repository.ScanRepo
	runner     *screener.Runner
	defaults   screener.Params
	httpServer *http.Server
	apiKey     string
	logger     *zap.Logger
}

func NewServer(pool *pgxpool.Pool, runner *screener.Runner, defaults screener.Params, port int, apiKey, corsOrigin string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pool:      pool,
		barRepo:   repository.NewBarRepo(pool),
		cacheRepo: repository.NewCacheRepo(pool),
		scanRepo:  repository.NewScanRepo(pool),
		runner:    runner,
		defaults:  defaults.Normalize(),
		apiKey:    apiKey,
		logger:    logger,
	}

	mux := http.NewServeMux()

	// Screening routes
	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("GET /v1/scan/latest", s.handleScanLatest)

	// Store routes
	mux.HandleFunc("GET /v1/bars/{symbol}", s.handleBars)
	mux.HandleFunc("GET /v1/cache/{symbol}", s.handleCacheInfo)
	mux.HandleFunc("DELETE /v1/cache/{symbol}", s.handleCacheClear)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a cold scan fetches years of bars
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("REST API server started", zap.String("addr", s.httpServer.Addr),
		zap.Bool("auth", s.apiKey != ""))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseDateParam(r *http.Request, key string, fallback time.Time) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	if !validateDate(v) {
		return time.Time{}, false
	}
	t, _ := time.Parse("2006-01-02", v)
	return t, true
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
