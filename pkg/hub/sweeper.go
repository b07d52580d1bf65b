package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"

	"github.com/robfig/cron/v3"
)

// sweeper removes expired cache entries on a cron schedule.
type sweeper struct {
	store     *cache.Store
	collector *metrics.Collector
	schedule  string
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func newSweeper(store *cache.Store, collector *metrics.Collector, schedule string, logger *slog.Logger) *sweeper {
	return &sweeper{
		store:     store,
		collector: collector,
		schedule:  schedule,
		logger:    logger.With("component", "cache.sweeper"),
		cron:      cron.New(),
	}
}

// Start schedules the sweep. Standard five-field expressions and
// descriptors such as "@every 1m" are accepted. An empty schedule does
// nothing.
func (s *sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cache sweeper started", "schedule", s.schedule, "backend", s.store.Backend().Name())
	return nil
}

func (s *sweeper) sweep(ctx context.Context) {
	start := time.Now()
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		return
	}
	s.collector.RecordCacheSweep(s.store.Backend().Name(), removed)
	s.logger.Debug("cache sweep completed", "removed", removed, "duration_ms", time.Since(start).Milliseconds())
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("cache sweeper stopped")
}

// NextRun returns the next scheduled sweep, or the zero time when the
// sweeper is not running.
func (s *sweeper) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
