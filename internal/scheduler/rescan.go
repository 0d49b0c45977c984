package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsescan/breakout-backend/internal/models"
	"github.com/nsescan/breakout-backend/internal/notifications"
	"github.com/nsescan/breakout-backend/internal/screener"
	"go.uber.org/zap"
)

// ScanRecorder persists completed scan runs.
type ScanRecorder interface {
	Record(ctx context.Context, run *models.ScanRun) error
}

type RescanConfig struct {
	Interval time.Duration // e.g. 1*time.Hour
	Symbols  []string
	Params   screener.Params
	// RunTimeout bounds one full watchlist pass.
	RunTimeout time.Duration
}

// Rescan periodically re-screens the configured watchlist so the cache stays
// warm and the latest report is always on hand.
type Rescan struct {
	runner *screener.Runner
	scans  ScanRecorder
	notify *notifications.Sender
	cfg    RescanConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewRescan(runner *screener.Runner, scans ScanRecorder, notify *notifications.Sender, cfg RescanConfig, logger *zap.Logger) *Rescan {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rescan{
		runner: runner,
		scans:  scans,
		notify: notify,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Rescan) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("rescan scheduler already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initial pass on startup (fire-and-forget)
	go s.runOnce()

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()

	s.logger.Info("rescan scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("symbols", len(s.cfg.Symbols)))
}

func (s *Rescan) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.logger.Info("rescan scheduler stopped")
}

func (s *Rescan) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RescanNow triggers a pass outside the normal schedule.
func (s *Rescan) RescanNow() {
	s.logger.Info("manual rescan triggered")
	s.runOnce()
}

func (s *Rescan) runOnce() {
	if len(s.cfg.Symbols) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	started := time.Now().UTC()
	reports := s.runner.Run(ctx, s.cfg.Symbols, s.cfg.Params)

	run := &models.ScanRun{
		ID:        uuid.New(),
		StartedAt: started,
		YearsGap:  s.cfg.Params.Normalize().YearsGap,
		Buffer:    s.cfg.Params.Normalize().Buffer,
		WeeksBack: s.cfg.Params.Normalize().WeeksBack,
		Results:   reports,
	}
	if err := s.scans.Record(ctx, run); err != nil {
		s.logger.Error("could not persist scan run", zap.Error(err))
	}

	breakouts := run.Breakouts()
	s.logger.Info("watchlist rescan complete",
		zap.Int("symbols", len(s.cfg.Symbols)),
		zap.Int("breakouts", len(breakouts)),
		zap.Duration("took", time.Since(started)))

	if s.notify != nil && s.notify.Enabled() {
		s.notify.SendScanSummary(len(s.cfg.Symbols), breakouts)
	}
}
