package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nsescan/breakout-backend/internal/models"
	"github.com/nsescan/breakout-backend/internal/screener"
	"go.uber.org/zap"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type scanRequest struct {
	Symbols   []string `json:"symbols"`
	CSV       string   `json:"csv"`    // raw CSV text with a symbol column
	Manual    string   `json:"manual"` // comma-separated fallback
	YearsGap  int      `json:"yearsGap"`
	Buffer    float64  `json:"buffer"`
	WeeksBack int      `json:"weeksBack"`
}

type scanResponse struct {
	YearsGap  int                     `json:"yearsGap"`
	Buffer    float64                 `json:"buffer"`
	WeeksBack int                     `json:"weeksBack"`
	Symbols   int                     `json:"symbols"`
	Breakouts []string                `json:"breakouts"`
	Results   []models.BreakoutReport `json:"results"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 && req.CSV != "" {
		parsed, err := screener.ParseCSV(strings.NewReader(req.CSV))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		symbols = parsed
	}
	if len(symbols) == 0 && req.Manual != "" {
		symbols = screener.ParseManual(req.Manual)
	}
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "no symbols provided")
		return
	}
	if len(symbols) > maxScanSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	params := screener.Params{
		YearsGap:  req.YearsGap,
		Buffer:    req.Buffer,
		WeeksBack: req.WeeksBack,
	}
	if params.YearsGap == 0 {
		params.YearsGap = s.defaults.YearsGap
	}
	if params.Buffer == 0 {
		params.Buffer = s.defaults.Buffer
	}
	if params.WeeksBack == 0 {
		params.WeeksBack = s.defaults.WeeksBack
	}
	params = params.Normalize()

	reports := s.runner.Run(r.Context(), symbols, params)

	writeJSON(w, http.StatusOK, scanResponse{
		YearsGap:  params.YearsGap,
		Buffer:    params.Buffer,
		WeeksBack: params.WeeksBack,
		Symbols:   len(symbols),
		Breakouts: orEmpty(screener.BreakoutSymbols(reports)),
		Results:   reports,
	})
}

func (s *Server) handleScanLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.scanRepo.Latest(r.Context())
	if err != nil {
		s.logger.Error("fetching latest scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch latest scan")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
