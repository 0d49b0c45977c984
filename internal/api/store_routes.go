package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type barJSON struct {
	D string  `json:"d"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	A float64 `json:"a"`
	V int64   `json:"v"`
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	now := time.Now().UTC()
	start, ok := parseDateParam(r, "start", now.AddDate(-1, 0, 0))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, ok := parseDateParam(r, "end", now.AddDate(0, 0, 1))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		return
	}

	bars, err := s.barRepo.QueryRange(r.Context(), symbol, start, end)
	if err != nil {
		s.logger.Error("fetching bars failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch bars")
		return
	}

	out := make([]barJSON, len(bars))
	for i, b := range bars {
		out[i] = barJSON{
			D: b.Date.Format("2006-01-02"),
			O: b.Open, H: b.High, L: b.Low, C: b.Close, A: b.AdjClose, V: b.Volume,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type cacheInfoJSON struct {
	Symbol      string `json:"symbol"`
	Cached      bool   `json:"cached"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Bars        int64  `json:"bars"`
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	entry, err := s.cacheRepo.Get(r.Context(), symbol)
	if err != nil {
		s.logger.Error("cache lookup failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch cache entry")
		return
	}
	count, err := s.barRepo.Count(r.Context(), symbol)
	if err != nil {
		s.logger.Error("bar count failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count bars")
		return
	}

	info := cacheInfoJSON{Symbol: symbol, Cached: entry != nil, Bars: count}
	if entry != nil {
		info.LastUpdated = entry.LastUpdated.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCacheClear is the maintenance-only cache invalidation path. The
// refresh/evaluate pipeline never deletes bars.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	if err := s.cacheRepo.Clear(r.Context(), symbol); err != nil {
		s.logger.Error("cache clear failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	s.logger.Info("cache cleared", zap.String("symbol", symbol))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "symbol": symbol})
}
