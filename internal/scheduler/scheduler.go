package scheduler

import (
	"context"
	"log/slog"
	"time"

	"social_watch/internal/domain"
)

// Ingestor defines the operation the scheduler triggers.
type Ingestor interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

// Scheduler triggers ingestion runs on a fixed interval. Only one
// scheduler instance should run against a database; concurrent runs
// are not guarded against.
type Scheduler struct {
	ingestor   Ingestor
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(ingestor Ingestor, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ingestor:   ingestor,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately, then on every tick until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.ingestor.Run(runCtx); err != nil {
		s.logger.Error("ingestion run failed", "error", err)
	}
}
