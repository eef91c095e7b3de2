// Package maintenance runs periodic housekeeping against the shared
// preferences database.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goroute-booking/internal/common/logger"
)

// Pruner deletes records older than a retention window
type Pruner interface {
	PruneStale(ctx context.Context, retentionDays int) (int64, error)
}

// SchedulerConfig contains configuration for the cleanup scheduler
type SchedulerConfig struct {
	Interval      time.Duration // How often to prune
	InitialDelay  time.Duration // Wait before the first run
	RetentionDays int           // Records untouched this long are removed
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:      24 * time.Hour,
		InitialDelay:  1 * time.Minute,
		RetentionDays: 90,
	}
}

// CleanupScheduler prunes stale records on a fixed interval
type CleanupScheduler struct {
	pruner    Pruner
	logger    logger.Logger
	config    SchedulerConfig
	isRunning bool
	mu        sync.RWMutex
	cancelFn  context.CancelFunc
	done      chan struct{}
	lastRun   time.Time
	lastCount int64
}

func NewCleanupScheduler(pruner Pruner, log logger.Logger, config SchedulerConfig) *CleanupScheduler {
	return &CleanupScheduler{
		pruner: pruner,
		logger: log.With("component", "maintenance"),
		config: config,
	}
}

// Start begins the cleanup scheduling
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cleanup scheduler is already running")
	}
	if s.config.Interval <= 0 || s.config.RetentionDays <= 0 {
		return fmt.Errorf("invalid scheduler config: interval %s, retention %d days", s.config.Interval, s.config.RetentionDays)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	s.logger.Info("Starting cleanup scheduler",
		"interval", s.config.Interval,
		"retention_days", s.config.RetentionDays)

	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for a running prune to finish
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.cancelFn()
	s.isRunning = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("Cleanup scheduler stopped")
}

func (s *CleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *CleanupScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	initial := time.NewTimer(s.config.InitialDelay)
	defer initial.Stop()
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-initial.C:
			s.run(ctx)
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *CleanupScheduler) run(ctx context.Context) {
	if _, err := s.Trigger(ctx); err != nil {
		s.logger.Error("Scheduled cleanup failed", "error", err)
	}
}

// Trigger prunes once, outside the schedule
func (s *CleanupScheduler) Trigger(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.pruner.PruneStale(ctx, s.config.RetentionDays)
	duration := time.Since(start)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.lastRun = start
	s.lastCount = n
	s.mu.Unlock()

	s.logger.Info("Cleanup completed", "records_deleted", n, "duration", duration)
	return n, nil
}

// GetStatus returns the current status of the cleanup scheduler
func (s *CleanupScheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"is_running":      s.isRunning,
		"interval":        s.config.Interval.String(),
		"retention_days":  s.config.RetentionDays,
		"last_run":        s.lastRun,
		"records_deleted": s.lastCount,
	}
}
