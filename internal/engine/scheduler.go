package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic fetch (and, when enabled, seen-set trimming)
// on fixed intervals. Cron runs each entry's invocations sequentially per
// job, so a slow fetch delays the next tick instead of overlapping it.
type Scheduler struct {
	cron     *cron.Cron
	engine   *Engine
	trimKeep time.Duration
	log      *slog.Logger
}

// NewScheduler creates a Scheduler fetching every fetchInterval. A
// non-zero trimInterval adds a trim entry dropping seen-set entries older
// than trimKeep.
func NewScheduler(
	eng *Engine,
	fetchInterval time.Duration,
	trimInterval time.Duration,
	trimKeep time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		engine:   eng,
		trimKeep: trimKeep,
		log:      log,
	}

	if _, err := s.cron.AddFunc(
		"@every "+fetchInterval.String(),
		s.runFetch,
	); err != nil {
		return nil, err
	}

	if trimInterval > 0 {
		if _, err := s.cron.AddFunc(
			"@every "+trimInterval.String(),
			s.runTrim,
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// A failed tick is logged and dropped; the next tick proceeds unaffected.
func (s *Scheduler) runFetch() {
	ctx := context.Background()
	s.log.Info("scheduled fetch starting")
	if err := s.engine.RunScheduledFetch(ctx); err != nil {
		s.log.Error("scheduled fetch failed", "error", err)
	}
}

func (s *Scheduler) runTrim() {
	removed := s.engine.TrimSeenSet(s.trimKeep)
	s.log.Info("seen-set trim complete", "removed", removed)
}
