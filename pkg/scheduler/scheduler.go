// Package scheduler triggers the daily digest run at a fixed UTC hour and
// sweeps the rate limiter.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/allstar/stockwatch/pkg/domain"
)

// DigestRunner executes a full digest batch
type DigestRunner interface {
	Run(ctx context.Context) *domain.DigestReport
}

// Scheduler fires the digest runner once per day at the configured UTC hour
type Scheduler struct {
	runner DigestRunner
	hour   int
	nowFn  func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Config holds scheduler configuration
type Config struct {
	Hour int // UTC hour of day for the digest run, 0-23
}

// NewScheduler creates a scheduler firing at cfg.Hour UTC
func NewScheduler(runner DigestRunner, cfg Config) *Scheduler {
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 12
	}
	return &Scheduler{runner: runner, hour: cfg.Hour, nowFn: time.Now}
}

// Start begins the daily trigger loop
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.digestWorker(ctx)

	lgr.Printf("[INFO] scheduler started, digest at %02d:00 UTC daily", s.hour)
}

// Stop cancels the trigger loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// DigestNow triggers a digest run immediately, outside the daily cadence
func (s *Scheduler) DigestNow(ctx context.Context) *domain.DigestReport {
	lgr.Printf("[INFO] manual digest run requested")
	return s.runner.Run(ctx)
}

// digestWorker sleeps until the next firing time, runs the digest, repeats.
// A timer per cycle instead of a ticker keeps the schedule correct across
// suspend or clock drift.
func (s *Scheduler) digestWorker(ctx context.Context) {
	defer s.wg.Done()

	for {
		wait := time.Until(s.nextRun())
		timer := time.NewTimer(wait)
		lgr.Printf("[DEBUG] next digest run in %v", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			report := s.runner.Run(ctx)
			if !report.Success {
				lgr.Printf("[WARN] scheduled digest run failed: %s", report.Message)
			}
		}
	}
}

// nextRun returns the next occurrence of the configured hour, strictly in the
// future
func (s *Scheduler) nextRun() time.Time {
	now := s.nowFn().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
