// Package scheduler runs the daily overdue-status sweep. Overdue is derived
// lazily whenever an invoice is read or mutated; the sweep only keeps listing
// and report queries honest for invoices nobody has touched since their due
// date passed.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverdueSweeper refreshes the status of invoices that went overdue since the
// last derivation. Implemented by the invoice application service.
type OverdueSweeper interface {
	RefreshOverdueStatuses(ctx context.Context, now time.Time) (int, error)
}

// OverdueSchedulerConfig holds the sweep schedule
type OverdueSchedulerConfig struct {
	// SweepHour and SweepMinute set the daily run time (24h clock)
	SweepHour   int
	SweepMinute int

	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration
}

// DefaultOverdueSchedulerConfig returns the default sweep schedule
func DefaultOverdueSchedulerConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		SweepHour:     0,
		SweepMinute:   5,
		CheckInterval: time.Minute,
	}
}

// ParseSweepTime parses an "HH:MM" schedule into an OverdueSchedulerConfig
func ParseSweepTime(value string) (OverdueSchedulerConfig, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return OverdueSchedulerConfig{}, fmt.Errorf("invalid sweep time %q: %w", value, err)
	}
	cfg := DefaultOverdueSchedulerConfig()
	cfg.SweepHour = parsed.Hour()
	cfg.SweepMinute = parsed.Minute()
	return cfg, nil
}

// OverdueScheduler triggers the overdue sweep once per day
type OverdueScheduler struct {
	config  OverdueSchedulerConfig
	sweeper OverdueSweeper
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewOverdueScheduler creates a new OverdueScheduler
func NewOverdueScheduler(config OverdueSchedulerConfig, sweeper OverdueSweeper, logger *zap.Logger) *OverdueScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &OverdueScheduler{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start begins the scheduling loop
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("overdue scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx)

	s.logger.Info("overdue scheduler started",
		zap.Int("sweep_hour", s.config.SweepHour),
		zap.Int("sweep_minute", s.config.SweepMinute),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
	return nil
}

// Stop stops the scheduling loop and waits for a running sweep to finish
func (s *OverdueScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("overdue scheduler stopped")
}

func (s *OverdueScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runSweep(ctx, now)
			}
		}
	}
}

// shouldRun reports whether the scheduled time has been reached and the sweep
// has not yet run today
func (s *OverdueScheduler) shouldRun(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduled := time.Date(now.Year(), now.Month(), now.Day(),
		s.config.SweepHour, s.config.SweepMinute, 0, 0, now.Location())

	if now.Before(scheduled) {
		return false
	}

	alreadyRanToday := !s.lastRun.IsZero() &&
		s.lastRun.Year() == now.Year() &&
		s.lastRun.YearDay() == now.YearDay()
	return !alreadyRanToday
}

func (s *OverdueScheduler) runSweep(ctx context.Context, now time.Time) {
	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	updated, err := s.sweeper.RefreshOverdueStatuses(ctx, now)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("overdue sweep completed", zap.Int("invoices_updated", updated))
}

// RunNow triggers a sweep immediately, outside the daily schedule
func (s *OverdueScheduler) RunNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
	return s.sweeper.RefreshOverdueStatuses(ctx, time.Now())
}
